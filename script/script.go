// Package script loads replay scripts: timed sequences of coin insertions and
// item selections that drive a machine deterministically.
package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/vending"
)

// ErrInvalidScript is returned when a script cannot be used.
var ErrInvalidScript = errors.New("script: invalid script")

// Step is one user action. Exactly one of Coin and Select is set.
type Step struct {
	At     time.Duration `yaml:"at"`
	Coin   int           `yaml:"coin,omitempty"`
	Select string        `yaml:"select,omitempty"`
}

// IsCoin reports whether the step inserts a coin.
func (s Step) IsCoin() bool {
	return s.Coin != 0
}

func (s Step) String() string {
	if s.IsCoin() {
		return fmt.Sprintf("%s coin %d", s.At, s.Coin)
	}

	return fmt.Sprintf("%s select %s", s.At, s.Select)
}

// Script is an ordered list of steps.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Load reads and validates a YAML script of the form
//
//	steps:
//	  - {at: 0ms, coin: 10}
//	  - {at: 200ms, select: Water}
func Load(r io.Reader) (*Script, error) {
	var s Script

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// LoadFile is Load on a file path.
func LoadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// Validate checks the script. Coins must be accepted denominations, and
// steps must not go back in time.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScript)
	}

	var last time.Duration

	for i, step := range s.Steps {
		hasCoin := step.Coin != 0
		hasSelect := step.Select != ""

		switch {
		case hasCoin == hasSelect:
			return fmt.Errorf("%w: step %d needs exactly one of coin and select",
				ErrInvalidScript, i)
		case step.At < 0:
			return fmt.Errorf("%w: step %d is at negative time %s",
				ErrInvalidScript, i, step.At)
		case step.At < last:
			return fmt.Errorf("%w: step %d at %s is before step %d at %s",
				ErrInvalidScript, i, step.At, i-1, last)
		}

		if hasCoin {
			if _, err := vending.ParseCoin(fmt.Sprint(step.Coin)); err != nil {
				return fmt.Errorf("%w: step %d: %v", ErrInvalidScript, i, err)
			}
		}

		last = step.At
	}

	return nil
}

// Schedule queues every step on engine as a user action of machine. Steps are
// placed relative to the current engine time. Selections must name catalog
// items.
func (s *Script) Schedule(
	engine timing.EventScheduler,
	machine *vending.Controller,
) error {
	events := make([]timing.ScheduledEvent, 0, len(s.Steps))
	start := engine.CurrentTime()

	for i, step := range s.Steps {
		evt := timing.ScheduledEvent{
			Time:    start + machine.Freq().Cycles(step.At),
			Handler: machine,
		}

		if step.IsCoin() {
			evt.Event = &vending.InsertCoinEvent{Amount: step.Coin}
		} else {
			item, ok := machine.Catalog().Lookup(step.Select)
			if !ok {
				return fmt.Errorf("%w: step %d: %w",
					ErrInvalidScript, i, vending.ErrUnknownItem)
			}

			evt.Event = &vending.SelectItemEvent{Item: item}
		}

		events = append(events, evt)
	}

	for _, evt := range events {
		engine.Schedule(evt)
	}

	return nil
}

// End returns the time of the last step.
func (s *Script) End() time.Duration {
	if len(s.Steps) == 0 {
		return 0
	}

	return s.Steps[len(s.Steps)-1].At
}
