package timectrl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SimClock is an interface for accessing simulation time, so components can
// depend on a clock abstraction rather than a concrete controller.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances according to wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

// WarpMode is the host's time-acceleration mode.
type WarpMode int

const (
	// WarpPhysics keeps physics running at the accelerated rate.
	WarpPhysics WarpMode = iota
	// WarpHigh puts vessels on rails; per-tick physics work is skipped.
	WarpHigh
)

func (m WarpMode) String() string {
	switch m {
	case WarpPhysics:
		return "physics"
	case WarpHigh:
		return "high"
	default:
		return fmt.Sprintf("WarpMode(%d)", int(m))
	}
}

// ParseWarpMode accepts "physics" or "high"; empty means physics.
func ParseWarpMode(s string) (WarpMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "physics", "low":
		return WarpPhysics, nil
	case "high", "rails", "on_rails":
		return WarpHigh, nil
	default:
		return 0, fmt.Errorf("unknown warp mode %q", s)
	}
}

// TickInfo is passed to listeners on every tick.
type TickInfo struct {
	Index    uint64
	Time     time.Time
	Delta    time.Duration
	WarpRate float64
	WarpMode WarpMode
}

// TimeController drives simulation time and notifies registered listeners.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	// currentTime tracks the current simulation time. It is updated
	// as the controller advances time.
	currentTime time.Time
	index       uint64

	warpRate float64
	warpMode WarpMode

	listeners []func(TickInfo)
}

// NewTimeController constructs a controller at 1x physics warp.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		warpRate:    1,
		warpMode:    WarpPhysics,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the simulation clock.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// Warp returns the current time-acceleration rate and mode.
func (tc *TimeController) Warp() (float64, WarpMode) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.warpRate, tc.warpMode
}

// SetWarp changes time acceleration. Rates below 1 are rejected.
func (tc *TimeController) SetWarp(rate float64, mode WarpMode) error {
	if !(rate >= 1) {
		return fmt.Errorf("warp rate must be >= 1, got %v", rate)
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.warpRate = rate
	tc.warpMode = mode
	return nil
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(TickInfo)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Step advances one tick synchronously and notifies listeners. Simulation
// time advances by Tick scaled by the warp rate.
func (tc *TimeController) Step() TickInfo {
	tc.mu.Lock()
	delta := time.Duration(float64(tc.Tick) * tc.warpRate)
	tc.currentTime = tc.currentTime.Add(delta)
	tc.index++
	info := TickInfo{
		Index:    tc.index,
		Time:     tc.currentTime,
		Delta:    delta,
		WarpRate: tc.warpRate,
		WarpMode: tc.warpMode,
	}
	listeners := append([]func(TickInfo){}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(info)
	}
	return info
}

// Start runs the controller in a separate goroutine until duration of
// simulation time has elapsed (0 runs until ctx is done). It returns a
// channel that is closed when the controller finishes.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.Lock()
		tc.currentTime = tc.StartTime
		tc.index = 0
		tc.mu.Unlock()

		var ticks <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			ticks = ticker.C
		}

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if ticks != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticks:
				}
			} else if ctx.Err() != nil {
				return
			}

			info := tc.Step()
			elapsed += info.Delta
		}
	}()
	return done
}
