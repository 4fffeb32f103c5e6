package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/surface-survey/model"
)

var (
	ErrBodyNotFound       = errors.New("body not found")
	ErrExperimentNotFound = errors.New("experiment not found")
	ErrVesselNotFound     = errors.New("vessel not found")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventVesselUpdated EventType = iota
	EventExperimentAdded
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type         EventType
	Vessel       model.Vessel
	ExperimentID string
}

// KnowledgeBase is an in-memory, thread-safe store for bodies, experiment
// definitions and vessels.
type KnowledgeBase struct {
	mu sync.RWMutex

	bodies      map[string]*model.Body
	experiments map[string]*model.Experiment
	vessels     map[string]*model.Vessel

	subs []func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		bodies:      make(map[string]*model.Body),
		experiments: make(map[string]*model.Experiment),
		vessels:     make(map[string]*model.Vessel),
	}
}

// AddBody adds a new body. It returns an error if the name already exists.
func (kb *KnowledgeBase) AddBody(b *model.Body) error {
	if b == nil || b.Name == "" {
		return fmt.Errorf("body must have a name")
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.bodies[b.Name]; exists {
		return fmt.Errorf("body %q already exists", b.Name)
	}
	kb.bodies[b.Name] = b
	return nil
}

// Body returns the named body.
func (kb *KnowledgeBase) Body(name string) (*model.Body, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	b, ok := kb.bodies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBodyNotFound, name)
	}
	return b, nil
}

// AddExperiment registers an experiment definition.
func (kb *KnowledgeBase) AddExperiment(e *model.Experiment) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("experiment must have an id")
	}
	kb.mu.Lock()
	if _, exists := kb.experiments[e.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("experiment %q already exists", e.ID)
	}
	kb.experiments[e.ID] = e
	subs := append([]func(Event){}, kb.subs...)
	kb.mu.Unlock()

	for _, sub := range subs {
		sub(Event{Type: EventExperimentAdded, ExperimentID: e.ID})
	}
	return nil
}

// Experiment looks up a definition by id. A missing id is not an error.
func (kb *KnowledgeBase) Experiment(id string) (*model.Experiment, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	e, ok := kb.experiments[id]
	return e, ok
}

// GetExperiment is Experiment with a sentinel error for callers that need one.
func (kb *KnowledgeBase) GetExperiment(id string) (*model.Experiment, error) {
	e, ok := kb.Experiment(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrExperimentNotFound, id)
	}
	return e, nil
}

// ListExperiments returns all experiments sorted by id.
func (kb *KnowledgeBase) ListExperiments() []*model.Experiment {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*model.Experiment, 0, len(kb.experiments))
	for _, e := range kb.experiments {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// AddVessel adds a new vessel. The vessel's body must already be known.
func (kb *KnowledgeBase) AddVessel(v *model.Vessel) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.vessels[v.ID]; exists {
		return fmt.Errorf("vessel with ID %q already exists", v.ID)
	}
	if _, ok := kb.bodies[v.Body]; !ok {
		return fmt.Errorf("%w: %q for vessel %q", ErrBodyNotFound, v.Body, v.ID)
	}
	// store pointer so that motion models can update in-place
	kb.vessels[v.ID] = v
	return nil
}

// GetVessel returns a copy of the vessel with the given ID.
func (kb *KnowledgeBase) GetVessel(id string) (model.Vessel, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	v, ok := kb.vessels[id]
	if !ok {
		return model.Vessel{}, fmt.Errorf("%w: %q", ErrVesselNotFound, id)
	}
	return *v, nil
}

// ListVessels returns a snapshot of all vessels sorted by id.
func (kb *KnowledgeBase) ListVessels() []model.Vessel {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Vessel, 0, len(kb.vessels))
	for _, v := range kb.vessels {
		res = append(res, *v)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// UpdateVessel applies fn to the stored vessel and notifies subscribers.
func (kb *KnowledgeBase) UpdateVessel(id string, fn func(*model.Vessel)) error {
	kb.mu.Lock()
	v, ok := kb.vessels[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrVesselNotFound, id)
	}
	fn(v)
	event := Event{
		Type:   EventVesselUpdated,
		Vessel: *v, // copy for safety
	}
	subs := append([]func(Event){}, kb.subs...)
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.subs = append(kb.subs, fn)
	idx := len(kb.subs) - 1

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		if idx < 0 || idx >= len(kb.subs) {
			return
		}
		kb.subs = append(kb.subs[:idx], kb.subs[idx+1:]...)
		idx = -1
	}
}
