package timing

import (
	"math"
	"time"
)

// VTimeInCycle is a point on the simulation timeline, counted in cycles of
// the engine frequency.
type VTimeInCycle uint64

// Freq defines the type of frequency.
type Freq float64

// Defines the unit of frequency.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
)

// Period returns the time between two consecutive cycles.
func (f Freq) Period() time.Duration {
	f.mustBePositive()
	return time.Duration(float64(time.Second) / float64(f))
}

// Cycles converts a duration into a whole number of cycles, rounding to the
// nearest cycle. Negative durations panic.
func (f Freq) Cycles(d time.Duration) VTimeInCycle {
	f.mustBePositive()

	if d < 0 {
		panic("timing: negative durations are not supported")
	}

	return VTimeInCycle(math.Round(d.Seconds() * float64(f)))
}

// Duration converts a number of cycles back into wall-clock duration.
func (f Freq) Duration(c VTimeInCycle) time.Duration {
	f.mustBePositive()
	return time.Duration(math.Round(float64(c) / float64(f) * float64(time.Second)))
}

func (f Freq) mustBePositive() {
	if f <= 0 || math.IsNaN(float64(f)) {
		panic("timing: frequency must be positive")
	}
}
