package core

import (
	"time"

	"github.com/signalsfoundry/surface-survey/model"
)

// Environment is the read-only host state an instrument sees for one tick.
type Environment struct {
	Time  time.Time
	Delta time.Duration

	// WarpRate above 1 with HighWarp set skips the tick entirely.
	WarpRate float64
	HighWarp bool

	// Vessel is nil when the part is not attached to a vessel.
	Vessel *model.Vessel
	Body   *model.Body

	// ControlSource reports whether the part itself can command the vessel.
	ControlSource bool
}

// Seconds is the tick duration in seconds.
func (e Environment) Seconds() float64 { return e.Delta.Seconds() }
