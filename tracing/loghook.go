package tracing

import (
	"context"
	"log/slog"

	"github.com/sarchlab/vendsim/instrumentation/hooking"
	"github.com/sarchlab/vendsim/logging"
	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/vending"
)

// LogHook writes a structured log line for every machine hook and every
// engine error.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook creates a LogHook. A nil logger discards everything.
func NewLogHook(logger *slog.Logger) *LogHook {
	return &LogHook{logger: logging.OrDiscard(logger)}
}

// Func logs the hook.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case vending.HookPosStateChange:
		t := ctx.Item.(vending.Transition)
		h.logger.Info("state changed",
			slog.String("machine", t.Machine),
			slog.String("from", t.From.String()),
			slog.String("to", t.To.String()),
			slog.String("cause", string(t.Cause)),
			slog.Duration("at", t.At),
			slog.Int("credit", t.Credit),
			slog.Int("change", t.Change),
			slog.String("selected", t.Selected),
		)
	case vending.HookPosCoinInserted:
		c := ctx.Item.(vending.CoinInsertion)
		h.logger.Debug("coin inserted",
			slog.Int("amount", c.Amount),
			slog.Int("credit", c.Credit),
		)
	case vending.HookPosItemSelected:
		item := ctx.Item.(vending.Item)
		h.logger.Debug("item selected",
			slog.String("item", item.Name),
			slog.Int("price", item.Price),
			slog.Int("stock", item.Stock),
		)
	case timing.HookPosEventError:
		h.logger.LogAttrs(context.Background(), slog.LevelError,
			"event handling failed",
			slog.Any("error", ctx.Detail),
		)
	}
}
