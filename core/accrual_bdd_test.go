package core

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/cucumber/godog"
)

type accrualContext struct {
	cfg       InstrumentConfig
	inst      *Instrument
	container *memContainer
	pool      *fakePool
	notifier  *recordingNotifier
}

func (a *accrualContext) reset() {
	a.cfg = DefaultInstrumentConfig()
	a.cfg.ExperimentID = "surfaceSurvey"
	a.cfg.PartTitle = "Rover Survey Module"
	a.cfg.ResourceRate = 1
	a.inst = nil
	a.container = &memContainer{}
	a.pool = &fakePool{}
	a.notifier = &recordingNotifier{}
}

func (a *accrualContext) instrument() *Instrument {
	if a.inst == nil {
		a.inst = NewInstrument("survey-1", a.cfg, WithActive(true))
		a.inst.Start(Dependencies{
			Registry:  fakeRegistry{"surfaceSurvey": testExperiment()},
			Container: a.container,
			Pool:      a.pool,
			Notifier:  a.notifier,
			Rate:      FixedRate{SecondsPerRecord: 10},
		})
	}
	return a.inst
}

func (a *accrualContext) anActiveInstrument(perSecond int) error {
	if perSecond != 1 {
		return fmt.Errorf("fixture only models 1 unit per second, got %d", perSecond)
	}
	return nil
}

func (a *accrualContext) theContainerHolds(records int) error {
	a.container.capacity = records
	return nil
}

func (a *accrualContext) theRoverHasCharge(amount float64) error {
	a.pool.available = amount
	return nil
}

func (a *accrualContext) theRoverDrives(speed float64, ticks int) error {
	inst := a.instrument()
	for range ticks {
		inst.Tick(testEnv(roverAt(speed)))
	}
	return nil
}

func (a *accrualContext) toggledOffAndOn() error {
	inst := a.instrument()
	if inst.Toggle() {
		return fmt.Errorf("first toggle left the instrument active")
	}
	if !inst.Toggle() {
		return fmt.Errorf("second toggle left the instrument inactive")
	}
	return nil
}

func (a *accrualContext) statusIs(want string) error {
	if got := a.instrument().Status(); got != want {
		return fmt.Errorf("status = %q, want %q", got, want)
	}
	return nil
}

func (a *accrualContext) containerStores(want float64) error {
	var sum float64
	for _, r := range a.container.records {
		sum += r.Amount
	}
	if math.Abs(sum-want) > 1e-9 {
		return fmt.Errorf("stored %v, want %v", sum, want)
	}
	return nil
}

func (a *accrualContext) noChargeRequested() error {
	if len(a.pool.requested) != 0 {
		return fmt.Errorf("charge requested: %v", a.pool.requested)
	}
	return nil
}

func (a *accrualContext) notificationsSent(want int) error {
	if got := len(a.notifier.messages); got != want {
		return fmt.Errorf("notifications = %d (%v), want %d", got, a.notifier.messages, want)
	}
	return nil
}

func initializeAccrualScenario(sc *godog.ScenarioContext) {
	a := &accrualContext{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		a.reset()
		return ctx, nil
	})

	sc.Step(`^an active survey instrument producing (\d+) units? per second$`, a.anActiveInstrument)
	sc.Step(`^the container holds (\d+) records?$`, a.theContainerHolds)
	sc.Step(`^the rover has (\d+(?:\.\d+)?) units of charge$`, a.theRoverHasCharge)
	sc.Step(`^the rover drives at (\d+(?:\.\d+)?) m/s for (\d+) ticks?$`, a.theRoverDrives)
	sc.Step(`^the instrument is toggled off and on$`, a.toggledOffAndOn)
	sc.Step(`^the instrument status is "([^"]*)"$`, a.statusIs)
	sc.Step(`^the container stores (\d+(?:\.\d+)?) units of data$`, a.containerStores)
	sc.Step(`^no charge was requested$`, a.noChargeRequested)
	sc.Step(`^(\d+) notifications? (?:was|were) sent$`, a.notificationsSent)
}

func TestAccrualFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeAccrualScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/accrual.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run accrual feature tests")
	}
}
