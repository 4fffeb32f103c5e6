package core

import "github.com/signalsfoundry/surface-survey/model"

// ExperimentRegistry resolves experiment definitions by id.
type ExperimentRegistry interface {
	Experiment(id string) (*model.Experiment, bool)
}

// ResourcePool grants up to the requested amount of a named resource.
type ResourcePool interface {
	Request(resource string, amount float64) (granted float64)
}

// Container holds science records. Records returns live records whose
// Amount the merge step may raise in place.
type Container interface {
	Records() []*model.Record
	// Capacity is the maximum record count; 0 means unlimited.
	Capacity() int
	AllowRepeatedSubjects() bool
	Admit(r *model.Record) bool
}

// Seat is a crew seat that may carry an occupant with its own container.
type Seat interface {
	Occupied() bool
	// OccupantContainer is nil when the occupant carries no storage.
	OccupantContainer() Container
}

// Notifier delivers one-shot user-facing messages.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// RateModel yields the nominal production rate per second.
type RateModel interface {
	Name() string
	DataRate(exp *model.Experiment, body string) float64
}

// ZoneSampler classifies a surface position into a zone label.
type ZoneSampler interface {
	Zone(body *model.Body, latDeg, lonDeg float64) string
}
