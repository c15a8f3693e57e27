package vending

import (
	"time"

	"github.com/sarchlab/vendsim/instrumentation/hooking"
	"github.com/sarchlab/vendsim/state"
	"github.com/sarchlab/vendsim/timing"
)

// Builder can build vending machine controllers.
type Builder struct {
	engine        timing.EventScheduler
	freq          timing.Freq
	catalog       Catalog
	dispenseDelay time.Duration
	changeDelay   time.Duration
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:          1 * timing.KHz,
		catalog:       ReferenceCatalog(),
		dispenseDelay: DefaultDispenseDelay,
		changeDelay:   DefaultChangeDelay,
	}
}

// WithEngine sets the engine that drives the timed steps.
func (b Builder) WithEngine(engine timing.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency used to convert delays into engine cycles.
func (b Builder) WithFreq(freq timing.Freq) Builder {
	b.freq = freq
	return b
}

// WithCatalog sets the items the machine sells.
func (b Builder) WithCatalog(catalog Catalog) Builder {
	b.catalog = catalog
	return b
}

// WithDispenseDelay sets how long dispensing takes.
func (b Builder) WithDispenseDelay(d time.Duration) Builder {
	b.dispenseDelay = d
	return b
}

// WithChangeDelay sets how long giving change takes.
func (b Builder) WithChangeDelay(d time.Duration) Builder {
	b.changeDelay = d
	return b
}

// Build creates a controller in the IDLE state.
func (b Builder) Build(name string) *Controller {
	b.mustBeValid()

	c := &Controller{
		HookableBase:  hooking.NewHookableBase(),
		name:          name,
		engine:        b.engine,
		freq:          b.freq,
		catalog:       b.catalog,
		dispenseDelay: b.dispenseDelay,
		changeDelay:   b.changeDelay,
		states:        state.NewManager(),
		pending:       make(map[*timing.CancelToken]struct{}),
	}

	if err := c.states.Register(sessionKey, newSession()); err != nil {
		panic(err)
	}

	return c
}

func (b Builder) mustBeValid() {
	if b.engine == nil {
		panic("vending: engine is not set")
	}

	if b.freq <= 0 {
		panic("vending: frequency must be positive")
	}

	if b.dispenseDelay < 0 || b.changeDelay < 0 {
		panic("vending: delays must not be negative")
	}
}
