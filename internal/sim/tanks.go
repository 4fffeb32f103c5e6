package sim

import (
	"sort"
	"sync"

	"github.com/signalsfoundry/surface-survey/core"
)

// Tanks holds a vessel's resource reservoirs and serves instrument draws.
type Tanks struct {
	mu     sync.Mutex
	byName map[string]*tank
}

type tank struct {
	amount   float64
	capacity float64 // 0 means unbounded
	regen    float64 // per second
}

// ResourceLevel is a point-in-time view of one tank.
type ResourceLevel struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Capacity float64 `json:"capacity"`
}

// NewTanks builds the reservoirs described by specs.
func NewTanks(specs []core.ResourceSpec) *Tanks {
	t := &Tanks{byName: make(map[string]*tank, len(specs))}
	for _, s := range specs {
		amount := s.Amount
		if s.Capacity > 0 && amount > s.Capacity {
			amount = s.Capacity
		}
		t.byName[s.Name] = &tank{amount: amount, capacity: s.Capacity, regen: s.RegenPerSecond}
	}
	return t
}

// Request grants up to amount of resource. Unknown resources grant nothing.
func (t *Tanks) Request(resource string, amount float64) float64 {
	if t == nil || !(amount > 0) {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.byName[resource]
	if !ok {
		return 0
	}
	granted := amount
	if granted > tk.amount {
		granted = tk.amount
	}
	tk.amount -= granted
	return granted
}

// Regen refills every tank by its regeneration rate over dt seconds.
func (t *Tanks) Regen(dt float64) {
	if t == nil || dt <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tk := range t.byName {
		if tk.regen <= 0 {
			continue
		}
		tk.amount += tk.regen * dt
		if tk.capacity > 0 && tk.amount > tk.capacity {
			tk.amount = tk.capacity
		}
	}
}

// Amount reports the current level of resource.
func (t *Tanks) Amount(resource string) float64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if tk, ok := t.byName[resource]; ok {
		return tk.amount
	}
	return 0
}

// Levels lists all tanks ordered by name.
func (t *Tanks) Levels() []ResourceLevel {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ResourceLevel, 0, len(t.byName))
	for name, tk := range t.byName {
		out = append(out, ResourceLevel{Name: name, Amount: tk.amount, Capacity: tk.capacity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var _ core.ResourcePool = (*Tanks)(nil)
