// Package tracing collects the state transitions of vending machines.
package tracing

import (
	"github.com/sarchlab/vendsim/instrumentation/hooking"
	"github.com/sarchlab/vendsim/vending"
)

// A Tracer consumes state transitions.
type Tracer interface {
	Transition(t vending.Transition)
}

// CollectTrace lets the tracer collect the transitions of a machine.
func CollectTrace(domain hooking.Hookable, tracer Tracer) {
	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook forwards state changes to a tracer.
type traceHook struct {
	t Tracer
}

// Func calls the tracer when the hook is triggered.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos != vending.HookPosStateChange {
		return
	}

	h.t.Transition(ctx.Item.(vending.Transition))
}
