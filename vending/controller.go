package vending

import (
	"fmt"
	"sync"
	"time"

	"github.com/sarchlab/vendsim/instrumentation/hooking"
	"github.com/sarchlab/vendsim/state"
	"github.com/sarchlab/vendsim/timing"
)

// Default delays of the dispense sequence.
const (
	DefaultDispenseDelay = 1000 * time.Millisecond
	DefaultChangeDelay   = 2000 * time.Millisecond
)

// Controller is a single vending machine. Use a Builder to create one.
type Controller struct {
	*hooking.HookableBase
	sync.Mutex

	name          string
	engine        timing.EventScheduler
	freq          timing.Freq
	catalog       Catalog
	dispenseDelay time.Duration
	changeDelay   time.Duration

	states  *state.Manager
	pending map[*timing.CancelToken]struct{}
	closed  bool
}

// Name returns the machine name.
func (c *Controller) Name() string {
	return c.name
}

// Catalog returns the items the machine sells.
func (c *Controller) Catalog() Catalog {
	return c.catalog
}

// Engine returns the engine the machine schedules its timed steps on.
func (c *Controller) Engine() timing.EventScheduler {
	return c.engine
}

// Freq returns the frequency used to convert delays into engine cycles.
func (c *Controller) Freq() timing.Freq {
	return c.freq
}

// InsertCoin adds amount to the credit. An idle machine starts waiting for a
// selection; every other state is kept.
func (c *Controller) InsertCoin(amount int) {
	c.Lock()
	defer c.Unlock()

	c.insertCoin(amount)
}

// SelectItem picks an item. An item without stock puts the machine out of
// stock. Otherwise the item becomes the selection and the sale starts if the
// credit covers the price.
func (c *Controller) SelectItem(item Item) {
	c.Lock()
	defer c.Unlock()

	c.selectItem(item)
}

// SelectItemByName is SelectItem on a catalog entry.
func (c *Controller) SelectItemByName(name string) error {
	item, ok := c.catalog.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}

	c.SelectItem(item)

	return nil
}

// PostInsertCoin queues a coin insertion at the current engine time. It is
// safe to call from any goroutine.
func (c *Controller) PostInsertCoin(amount int) {
	c.post(&InsertCoinEvent{Amount: amount})
}

// PostSelectItem queues the selection of a catalog entry at the current
// engine time. It is safe to call from any goroutine.
func (c *Controller) PostSelectItem(name string) error {
	item, ok := c.catalog.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}

	c.post(&SelectItemEvent{Item: item})

	return nil
}

func (c *Controller) post(evt any) {
	c.engine.Schedule(timing.ScheduledEvent{
		Event:   evt,
		Time:    c.engine.CurrentTime(),
		Handler: c,
	})
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Snapshot {
	s, err := state.LoadAs[Session](c.states, sessionKey)
	if err != nil {
		panic(err)
	}

	return Snapshot{
		Machine:  c.name,
		State:    s.State,
		Credit:   s.Credit,
		Change:   s.Change,
		Selected: s.Selected,
		Time:     c.engine.CurrentTime(),
	}
}

// Close cancels the timed steps that have not fired yet. The session stays
// where it is, and the controller schedules no further timed steps.
// A sale started after Close stays in DISPENSING_ITEM, since its dispense
// step is never scheduled.
func (c *Controller) Close() {
	c.Lock()
	defer c.Unlock()

	for token := range c.pending {
		token.Cancel()
	}

	clear(c.pending)
	c.closed = true
}

// Handle processes the events the controller schedules on its engine.
func (c *Controller) Handle(event any) error {
	c.Lock()
	defer c.Unlock()

	switch e := event.(type) {
	case *InsertCoinEvent:
		c.insertCoin(e.Amount)
	case *SelectItemEvent:
		c.selectItem(e.Item)
	case *DispenseDoneEvent:
		delete(c.pending, e.token)
		c.dispenseDone(e)
	case *ChangeDoneEvent:
		delete(c.pending, e.token)
		c.changeDone()
	default:
		return fmt.Errorf("vending: %s cannot handle event of type %T",
			c.name, event)
	}

	return nil
}

func (c *Controller) insertCoin(amount int) {
	var credit int

	t, changed := c.update(CauseInsertCoin, func(s *Session) bool {
		s.Credit += amount
		credit = s.Credit

		if s.State != Idle {
			return false
		}

		s.State = WaitingForSelection

		return true
	})

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosCoinInserted,
		Item:   CoinInsertion{Amount: amount, Credit: credit},
	})

	if changed {
		c.invokeStateChange(t)
	}
}

func (c *Controller) selectItem(item Item) {
	dispense := false
	remaining := 0

	t, _ := c.update(CauseSelectItem, func(s *Session) bool {
		if !item.InStock() {
			s.State = OutOfStock
			return true
		}

		selected := item
		s.Selected = &selected

		if s.Credit >= item.Price {
			s.State = DispensingItem
			remaining = s.Credit - item.Price
			dispense = true
		} else {
			s.State = WaitingForPayment
		}

		return true
	})

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosItemSelected,
		Item:   item,
	})
	c.invokeStateChange(t)

	if dispense {
		c.scheduleTimed(c.dispenseDelay, func(token *timing.CancelToken) any {
			return &DispenseDoneEvent{Remaining: remaining, token: token}
		})
	}
}

func (c *Controller) dispenseDone(e *DispenseDoneEvent) {
	t, _ := c.update(CauseDispenseDone, func(s *Session) bool {
		s.Change = e.Remaining
		s.Credit = 0
		s.State = GivingChange

		return true
	})
	c.invokeStateChange(t)

	c.scheduleTimed(c.changeDelay, func(token *timing.CancelToken) any {
		return &ChangeDoneEvent{token: token}
	})
}

func (c *Controller) changeDone() {
	t, _ := c.update(CauseChangeDone, func(s *Session) bool {
		s.Selected = nil
		s.Change = 0
		s.State = Idle

		return true
	})
	c.invokeStateChange(t)
}

// update applies fn to the session as one commit. fn reports whether it set
// the state.
func (c *Controller) update(
	cause Cause,
	fn func(s *Session) bool,
) (Transition, bool) {
	var (
		from, to MachineState
		after    Session
		changed  bool
	)

	err := state.Update(c.states, sessionKey, func(s *Session) error {
		from = s.State
		changed = fn(s)
		to = s.State
		after = *s

		return nil
	})
	if err != nil {
		panic(err)
	}

	now := c.engine.CurrentTime()
	t := Transition{
		Machine: c.name,
		From:    from,
		To:      to,
		Cause:   cause,
		Time:    now,
		At:      c.freq.Duration(now),
		Credit:  after.Credit,
		Change:  after.Change,
	}

	if after.Selected != nil {
		t.Selected = after.Selected.Name
	}

	return t, changed
}

func (c *Controller) invokeStateChange(t Transition) {
	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosStateChange,
		Item:   t,
	})
}

// scheduleTimed schedules a timed step delay after now. Closed controllers
// schedule nothing.
func (c *Controller) scheduleTimed(
	delay time.Duration,
	newEvent func(token *timing.CancelToken) any,
) {
	if c.closed {
		return
	}

	token := timing.NewCancelToken()
	c.pending[token] = struct{}{}

	c.engine.Schedule(timing.ScheduledEvent{
		Event:   newEvent(token),
		Time:    c.engine.CurrentTime() + c.freq.Cycles(delay),
		Handler: c,
		Cancel:  token,
	})
}
