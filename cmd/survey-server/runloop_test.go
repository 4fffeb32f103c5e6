package main

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/surface-survey/internal/app"
	"github.com/signalsfoundry/surface-survey/internal/config"
	"github.com/signalsfoundry/surface-survey/internal/logging"
	"github.com/signalsfoundry/surface-survey/timectrl"
)

func TestRunSimLoop_AppliesReloads(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Accelerated = false
	rt, err := app.Build(context.Background(), cfg, logging.Noop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close(context.Background())

	reloads := make(chan *config.Config, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := runSimLoop(ctx, rt, 0, reloads, logging.Noop())

	next := *cfg
	next.Simulation.WarpRate = 3
	next.Simulation.WarpMode = "high"
	reloads <- &next

	deadline := time.After(2 * time.Second)
	for {
		rate, mode := rt.Clock.Warp()
		if rate == 3 && mode == timectrl.WarpHigh {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("warp never applied: rate=%v mode=%v", rate, mode)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sim loop did not stop")
	}
}

func TestRunSimLoop_BoundedRunKeepsServing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Accelerated = true
	rt, err := app.Build(context.Background(), cfg, logging.Noop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := runSimLoop(ctx, rt, 3*cfg.Simulation.Tick, nil, logging.Noop())

	deadline := time.After(2 * time.Second)
	for rt.Sim.Now().IsZero() {
		select {
		case <-deadline:
			t.Fatalf("no tick observed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	select {
	case <-done:
		t.Fatalf("loop exited before ctx was cancelled")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	<-done
}
