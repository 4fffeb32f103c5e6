package core

import (
	"math"
	"strings"
	"testing"

	"github.com/signalsfoundry/surface-survey/internal/scalarmap"
	"github.com/signalsfoundry/surface-survey/model"
)

type instrumentFixture struct {
	inst      *Instrument
	container *memContainer
	pool      *fakePool
	notifier  *recordingNotifier
}

func newFixture(t *testing.T, mutate func(*InstrumentConfig)) *instrumentFixture {
	t.Helper()
	cfg := DefaultInstrumentConfig()
	cfg.ExperimentID = "surfaceSurvey"
	cfg.PartTitle = "Rover Survey Module"
	cfg.ResourceRate = 1
	if mutate != nil {
		mutate(&cfg)
	}

	f := &instrumentFixture{
		container: &memContainer{},
		pool:      &fakePool{available: 1000},
		notifier:  &recordingNotifier{},
	}
	f.inst = NewInstrument("survey-1", cfg, WithActive(true))
	f.inst.Start(Dependencies{
		Registry:  fakeRegistry{"surfaceSurvey": testExperiment()},
		Container: f.container,
		Pool:      f.pool,
		Notifier:  f.notifier,
		Rate:      FixedRate{SecondsPerRecord: 10},
	})
	return f
}

func TestInstrument_ProducesAndReportsRate(t *testing.T) {
	f := newFixture(t, nil)
	if f.inst.Status() != StatusActivating {
		t.Fatalf("status after start = %q", f.inst.Status())
	}

	res := f.inst.Tick(testEnv(roverAt(4)))
	if res.Status != "60.00/min (Grasslands)" {
		t.Fatalf("status = %q", res.Status)
	}
	if res.Produced != 1 || len(f.container.records) != 1 {
		t.Fatalf("produced = %v, records = %d", res.Produced, len(f.container.records))
	}
	if res.Consumed != 1 {
		t.Fatalf("consumed = %v, want 1", res.Consumed)
	}
	if f.inst.MaxRecordData() != 10 {
		t.Fatalf("MaxRecordData = %v, want 10", f.inst.MaxRecordData())
	}
}

func TestInstrument_SlowSpeedConsumesNothing(t *testing.T) {
	f := newFixture(t, nil)
	res := f.inst.Tick(testEnv(roverAt(0.5)))
	if res.Status != StatusWrongSpeed {
		t.Fatalf("status = %q, want %q", res.Status, StatusWrongSpeed)
	}
	if len(f.pool.requested) != 0 || res.Consumed != 0 {
		t.Fatalf("resource requested while too slow: %v", f.pool.requested)
	}
	if len(f.container.records) != 0 || res.Produced != 0 {
		t.Fatalf("data produced while too slow")
	}
}

func TestInstrument_CurveZeroIsWrongSpeed(t *testing.T) {
	f := newFixture(t, func(c *InstrumentConfig) {
		c.VelocityCurve = NewFloatCurve(Keyframe{Time: 1, Value: 1}, Keyframe{Time: 5, Value: 0})
	})
	if res := f.inst.Tick(testEnv(roverAt(6))); res.Status != StatusWrongSpeed {
		t.Fatalf("status = %q, want %q", res.Status, StatusWrongSpeed)
	}
}

func TestInstrument_NoPowerAndPartialPower(t *testing.T) {
	f := newFixture(t, nil)
	f.pool.available = 0
	if res := f.inst.Tick(testEnv(roverAt(4))); res.Status != StatusNoPower {
		t.Fatalf("status = %q, want %q", res.Status, StatusNoPower)
	}

	f.pool.available = 0.25
	res := f.inst.Tick(testEnv(roverAt(4)))
	if res.Coefficient != 0.25 || res.Produced != 0.25 {
		t.Fatalf("partial power coefficient = %v produced = %v", res.Coefficient, res.Produced)
	}
	if res.Status != "15.00/min (Grasslands)" {
		t.Fatalf("status = %q", res.Status)
	}
}

func TestInstrument_ZeroOutputIsDistinctFromNoPower(t *testing.T) {
	f := newFixture(t, nil)
	f.inst.Start(Dependencies{
		Registry:  fakeRegistry{"surfaceSurvey": testExperiment()},
		Container: f.container,
		Pool:      f.pool,
		Rate:      ZoneScaledRate{PerMinute: scalarmap.NewFloat64("sciencePerMin", 0)},
	})
	f.inst.SetActive(true)

	res := f.inst.Tick(testEnv(roverAt(4)))
	if res.Status != StatusNoOutput {
		t.Fatalf("status = %q, want %q", res.Status, StatusNoOutput)
	}
	if res.Consumed == 0 {
		t.Fatalf("power should have been drawn before the output check")
	}
}

func TestInstrument_InfiniteRateIsNoOutput(t *testing.T) {
	f := newFixture(t, nil)
	f.container.repeated = true
	perMinute := scalarmap.NewFloat64("sciencePerMin", 1)
	perMinute.Set("Kerbin", math.Inf(1))
	f.inst.Start(Dependencies{
		Registry:  fakeRegistry{"surfaceSurvey": testExperiment()},
		Container: f.container,
		Pool:      f.pool,
		Rate:      ZoneScaledRate{PerMinute: perMinute},
	})
	f.inst.SetActive(true)

	res := f.inst.Tick(testEnv(roverAt(4)))
	if res.Status != StatusNoOutput {
		t.Fatalf("status = %q, want %q", res.Status, StatusNoOutput)
	}
	if len(f.container.records) != 0 {
		t.Fatalf("stored %d records from an infinite rate", len(f.container.records))
	}
}

func TestInstrument_WrongEnvironment(t *testing.T) {
	f := newFixture(t, nil)
	v := roverAt(4)
	v.Situation = model.VesselOrbiting
	v.AltitudeM = 100000
	if res := f.inst.Tick(testEnv(v)); res.Status != StatusWrongEnvironment {
		t.Fatalf("status = %q, want %q", res.Status, StatusWrongEnvironment)
	}

	env := testEnv(roverAt(4))
	env.Vessel.Situation = model.VesselSplashed
	env.Body.HasOcean = false
	if res := f.inst.Tick(env); res.Status != StatusWrongEnvironment {
		t.Fatalf("splashed without ocean: status = %q", res.Status)
	}
}

func TestInstrument_HighWarpLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, nil)
	f.inst.Tick(testEnv(roverAt(0.5)))

	env := testEnv(nil)
	env.WarpRate = 50
	env.HighWarp = true
	res := f.inst.Tick(env)
	if !res.Skipped {
		t.Fatalf("expected skipped tick")
	}
	if f.inst.Status() != StatusWrongSpeed {
		t.Fatalf("status changed during warp skip: %q", f.inst.Status())
	}
	if len(f.pool.requested) != 0 {
		t.Fatalf("resource requested during warp skip")
	}
}

func TestInstrument_ContainerFullNotifiesOncePerCycle(t *testing.T) {
	f := newFixture(t, nil)
	f.container.capacity = 1
	f.container.records = append(f.container.records,
		model.NewRecord(model.Subject{ID: "other@KerbinSrfLanded"}, 1, 1, mergeNow))

	for i := 0; i < 3; i++ {
		res := f.inst.Tick(testEnv(roverAt(4)))
		if res.Status != StatusContainerFull {
			t.Fatalf("tick %d status = %q", i, res.Status)
		}
		if res.Notified != (i == 0) {
			t.Fatalf("tick %d notified = %v", i, res.Notified)
		}
	}
	if len(f.notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notifier.messages))
	}
	want := "[Rover Survey Module] Surface Survey while landed at Kerbin's Grasslands: Container Full."
	if f.notifier.messages[0] != want {
		t.Fatalf("message = %q, want %q", f.notifier.messages[0], want)
	}

	// Free room, store once, then fill again: a second notification is due.
	f.container.records = nil
	if res := f.inst.Tick(testEnv(roverAt(4))); !strings.HasSuffix(res.Status, "(Grasslands)") {
		t.Fatalf("status after freeing room = %q", res.Status)
	}
	f.container.records = []*model.Record{
		model.NewRecord(model.Subject{ID: "other@KerbinSrfLanded"}, 1, 1, mergeNow),
	}
	f.inst.Tick(testEnv(roverAt(4)))
	f.inst.Tick(testEnv(roverAt(4)))
	if len(f.notifier.messages) != 2 {
		t.Fatalf("notifications after refill = %d, want 2", len(f.notifier.messages))
	}
}

func TestInstrument_AdmissionRejectionDeactivates(t *testing.T) {
	f := newFixture(t, nil)
	f.container.reject = true

	res := f.inst.Tick(testEnv(roverAt(4)))
	if !res.Deactivated || f.inst.Active() {
		t.Fatalf("expected deactivation, got %+v", res)
	}
	if res.Status != StatusContainerFull {
		t.Fatalf("status = %q", res.Status)
	}
	if res := f.inst.Tick(testEnv(roverAt(4))); res.Status != StatusDisabled {
		t.Fatalf("next tick status = %q, want %q", res.Status, StatusDisabled)
	}
}

func TestInstrument_ToggleResetsLatchAndStatus(t *testing.T) {
	f := newFixture(t, func(c *InstrumentConfig) { c.SurveyName = "Geo Scan" })
	f.container.capacity = 1
	f.container.records = []*model.Record{model.NewRecord(model.Subject{ID: "x"}, 1, 1, mergeNow)}
	f.inst.Tick(testEnv(roverAt(4)))
	if !f.inst.ContainerFull() {
		t.Fatalf("expected latch set")
	}

	if f.inst.Toggle() {
		t.Fatalf("toggle should deactivate")
	}
	if f.inst.Status() != StatusDisabled || f.inst.ContainerFull() {
		t.Fatalf("after toggle off: status %q latch %v", f.inst.Status(), f.inst.ContainerFull())
	}
	if !f.inst.Toggle() || f.inst.Status() != StatusActivating {
		t.Fatalf("after toggle on: status %q", f.inst.Status())
	}
	if f.inst.ToggleLabel() != "Toggle Geo Scan" {
		t.Fatalf("label = %q", f.inst.ToggleLabel())
	}
}

func TestInstrument_UnknownExperimentIsInert(t *testing.T) {
	cfg := DefaultInstrumentConfig()
	cfg.ExperimentID = "missing"
	inst := NewInstrument("survey-2", cfg, WithActive(true))
	inst.Start(Dependencies{Registry: fakeRegistry{}, Container: &memContainer{}})

	for i := 0; i < 2; i++ {
		if res := inst.Tick(testEnv(roverAt(4))); res.Status != StatusDisconnected {
			t.Fatalf("status = %q, want %q", res.Status, StatusDisconnected)
		}
	}
}

func TestInstrument_TransmitValueStampedFromBodyMap(t *testing.T) {
	transmit := scalarmap.NewFloat64("xmitDataScalar", 0.5)
	transmit.Set("Kerbin", 0.2)
	f := newFixture(t, func(c *InstrumentConfig) { c.Transmit = transmit })

	f.inst.Tick(testEnv(roverAt(4)))
	if got := f.container.records[0].TransmitValue; got != 0.2 {
		t.Fatalf("transmit value = %v, want 0.2", got)
	}
}

func TestInstrument_SeatOccupantStorage(t *testing.T) {
	cfg := DefaultInstrumentConfig()
	cfg.ExperimentID = "surfaceSurvey"
	cfg.RequireControlSource = true
	inst := NewInstrument("eva-survey", cfg, WithActive(true))

	occupant := &memContainer{}
	seat := &fakeSeat{}
	inst.Start(Dependencies{
		Registry: fakeRegistry{"surfaceSurvey": testExperiment()},
		Seat:     seat,
		Rate:     FixedRate{SecondsPerRecord: 10},
	})

	if res := inst.Tick(testEnv(roverAt(4))); res.Status != StatusNoCrew {
		t.Fatalf("empty seat status = %q, want %q", res.Status, StatusNoCrew)
	}
	seat.occupied = true
	if res := inst.Tick(testEnv(roverAt(4))); res.Status != StatusNoStorage {
		t.Fatalf("occupant without storage status = %q, want %q", res.Status, StatusNoStorage)
	}
	seat.container = occupant
	inst.Tick(testEnv(roverAt(4)))
	if len(occupant.records) != 1 {
		t.Fatalf("occupant container records = %d, want 1", len(occupant.records))
	}
}
