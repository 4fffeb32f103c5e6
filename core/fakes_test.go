package core

import (
	"time"

	"github.com/signalsfoundry/surface-survey/model"
)

type memContainer struct {
	records  []*model.Record
	capacity int
	repeated bool
	reject   bool
}

func (c *memContainer) Records() []*model.Record    { return c.records }
func (c *memContainer) Capacity() int               { return c.capacity }
func (c *memContainer) AllowRepeatedSubjects() bool { return c.repeated }
func (c *memContainer) Admit(r *model.Record) bool {
	if c.reject {
		return false
	}
	c.records = append(c.records, r)
	return true
}

type fakePool struct {
	available float64
	requested []float64
}

func (p *fakePool) Request(_ string, amount float64) float64 {
	p.requested = append(p.requested, amount)
	granted := amount
	if granted > p.available {
		granted = p.available
	}
	p.available -= granted
	return granted
}

type fakeSeat struct {
	occupied  bool
	container Container
}

func (s *fakeSeat) Occupied() bool               { return s.occupied }
func (s *fakeSeat) OccupantContainer() Container { return s.container }

type fakeRegistry map[string]*model.Experiment

func (r fakeRegistry) Experiment(id string) (*model.Experiment, bool) {
	e, ok := r[id]
	return e, ok
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(msg string) { n.messages = append(n.messages, msg) }

func testExperiment() *model.Experiment {
	return &model.Experiment{
		ID:            "surfaceSurvey",
		Title:         "Surface Survey",
		BaseValue:     10,
		DataScale:     1,
		SituationMask: model.MaskOf(model.SrfLanded, model.SrfSplashed, model.FlyingLow),
		BiomeMask:     model.MaskOf(model.SrfLanded),
	}
}

func testBody() *model.Body {
	return &model.Body{
		Name:                    "Kerbin",
		RadiusM:                 600000,
		HasAtmosphere:           true,
		AtmosphereDepth:         70000,
		HasOcean:                true,
		FlyingAltitudeThreshold: 18000,
		SpaceAltitudeThreshold:  250000,
	}
}

func roverAt(speed float64) *model.Vessel {
	return &model.Vessel{
		ID:              "rover",
		Body:            "Kerbin",
		Situation:       model.VesselLanded,
		SurfaceVelocity: model.Motion{X: speed, Z: 3},
		Up:              model.Motion{Z: 1},
		LandedAt:        "Grasslands",
		Controllable:    true,
	}
}

func testEnv(v *model.Vessel) Environment {
	return Environment{
		Time:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Delta:    time.Second,
		WarpRate: 1,
		Vessel:   v,
		Body:     testBody(),
	}
}
