package core

// Latch is an edge detector for the container-full condition.
type Latch struct {
	set bool
}

// Set latches and reports whether this call was the false to true edge.
func (l *Latch) Set() (rising bool) {
	rising = !l.set
	l.set = true
	return rising
}

// Reset clears the latch.
func (l *Latch) Reset() { l.set = false }

// IsSet reports the current state.
func (l *Latch) IsSet() bool { return l.set }
