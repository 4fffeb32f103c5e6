package core

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/surface-survey/internal/logging"
	"github.com/signalsfoundry/surface-survey/internal/scalarmap"
	"github.com/signalsfoundry/surface-survey/model"
)

const (
	DefaultSurveyName   = "Survey"
	DefaultResourceName = "ElectricCharge"
	DefaultMinVelocity  = 1.0
)

// InstrumentConfig holds the per-part settings of a survey instrument.
type InstrumentConfig struct {
	ExperimentID string
	PartTitle    string
	SurveyName   string

	MinVelocity          float64
	RequireControlSource bool
	VelocityCurve        FloatCurve

	ResourceName string
	ResourceRate float64 // per second; 0 disables the power gate

	// Transmit holds the per-body transmission value stamped on new records.
	Transmit *scalarmap.Map[float64]
}

// DefaultInstrumentConfig returns the part defaults.
func DefaultInstrumentConfig() InstrumentConfig {
	return InstrumentConfig{
		SurveyName:   DefaultSurveyName,
		ResourceName: DefaultResourceName,
		MinVelocity:  DefaultMinVelocity,
	}
}

// Dependencies are the collaborators an instrument binds at Start.
type Dependencies struct {
	Registry  ExperimentRegistry
	Container Container
	Seat      Seat
	Pool      ResourcePool
	Notifier  Notifier
	Zones     ZoneSampler
	Rate      RateModel
}

// TickResult reports what one tick did.
type TickResult struct {
	Status  string
	Skipped bool

	Situation model.Situation
	Zone      string
	SubjectID string

	Speed       float64
	Coefficient float64
	Consumed    float64
	Produced    float64
	Created     []*model.Record

	Notified    bool
	Deactivated bool
}

// Instrument is one vehicle-mounted survey instrument.
type Instrument struct {
	id  string
	cfg InstrumentConfig
	log logging.Logger

	active bool
	status string
	latch  Latch

	experiment    *model.Experiment
	maxRecordData float64

	container Container
	seat      Seat
	pool      ResourcePool
	notifier  Notifier
	zones     ZoneSampler
	rate      RateModel
}

// InstrumentOption configures an Instrument.
type InstrumentOption func(*Instrument)

// WithInstrumentLogger injects a logger.
func WithInstrumentLogger(l logging.Logger) InstrumentOption {
	return func(in *Instrument) {
		if l != nil {
			in.log = l
		}
	}
}

// WithActive sets the persisted activity flag before Start.
func WithActive(active bool) InstrumentOption {
	return func(in *Instrument) { in.active = active }
}

// NewInstrument constructs an unbound instrument. Start must be called
// before it produces anything.
func NewInstrument(id string, cfg InstrumentConfig, opts ...InstrumentOption) *Instrument {
	if cfg.SurveyName == "" {
		cfg.SurveyName = DefaultSurveyName
	}
	if cfg.ResourceName == "" {
		cfg.ResourceName = DefaultResourceName
	}
	in := &Instrument{
		id:  id,
		cfg: cfg,
		log: logging.Noop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.resetStatus()
	return in
}

// Start resolves the experiment and binds collaborators. An unknown
// experiment leaves the instrument inert.
func (in *Instrument) Start(deps Dependencies) {
	in.container = deps.Container
	in.seat = deps.Seat
	in.pool = deps.Pool
	in.notifier = deps.Notifier
	in.zones = deps.Zones
	in.rate = deps.Rate
	if in.rate == nil {
		in.rate = ZoneScaledRate{}
	}

	in.experiment = nil
	if deps.Registry != nil {
		if exp, ok := deps.Registry.Experiment(in.cfg.ExperimentID); ok {
			in.experiment = exp
		}
	}
	if in.experiment == nil {
		in.log.Warn(context.Background(), "experiment not found; instrument inert",
			logging.String("instrument", in.id),
			logging.String("experiment", in.cfg.ExperimentID),
		)
	} else {
		in.maxRecordData = in.experiment.MaxRecordData()
	}
	in.resetStatus()
}

// Toggle flips the activity flag and returns the new value.
func (in *Instrument) Toggle() bool {
	in.SetActive(!in.active)
	return in.active
}

// SetActive sets the activity flag and resets status and the overflow latch.
func (in *Instrument) SetActive(active bool) {
	in.active = active
	in.resetStatus()
}

func (in *Instrument) resetStatus() {
	in.latch.Reset()
	if in.active {
		in.status = StatusActivating
	} else {
		in.status = StatusDisabled
	}
}

func (in *Instrument) ID() string { return in.id }
func (in *Instrument) Active() bool { return in.active }
func (in *Instrument) Status() string { return in.status }
func (in *Instrument) Config() InstrumentConfig { return in.cfg }
func (in *Instrument) MaxRecordData() float64 { return in.maxRecordData }
func (in *Instrument) ContainerFull() bool { return in.latch.IsSet() }
func (in *Instrument) Experiment() *model.Experiment { return in.experiment }

// ToggleLabel is the action label shown to the user.
func (in *Instrument) ToggleLabel() string { return "Toggle " + in.cfg.SurveyName }

// RateModel returns the bound rate model, nil before Start.
func (in *Instrument) RateModel() RateModel { return in.rate }

// Tick runs one accrual step against env.
func (in *Instrument) Tick(env Environment) TickResult {
	gate := evaluateGates(gateInputs{
		active:               in.active,
		experiment:           in.experiment,
		requireControlSource: in.cfg.RequireControlSource,
		container:            in.container,
		seat:                 in.seat,
	}, env)
	if gate.skip {
		return TickResult{Skipped: true, Status: in.status}
	}
	if !gate.proceed() {
		return in.finish(TickResult{Status: gate.status})
	}

	vessel, body := env.Vessel, env.Body
	res := TickResult{Situation: ClassifySituation(vessel, body)}
	if !in.experiment.IsAvailableWhile(res.Situation, body) {
		res.Status = StatusWrongEnvironment
		return in.finish(res)
	}

	dt := env.Seconds()
	res.Speed = HorizontalSpeed(VecFromMotion(vessel.SurfaceVelocity), VecFromMotion(vessel.Up))
	coeff := SpeedCoefficient(res.Speed, in.cfg.MinVelocity, in.cfg.VelocityCurve)
	if coeff <= 0 {
		res.Status = StatusWrongSpeed
		return in.finish(res)
	}

	power := ApplyPower(in.pool, in.cfg.ResourceName, in.cfg.ResourceRate, coeff, dt)
	res.Consumed = power.Granted
	res.Coefficient = power.Coefficient
	if power.Coefficient <= 0 {
		res.Status = StatusNoPower
		return in.finish(res)
	}

	flow := in.rate.DataRate(in.experiment, body.Name) * power.Coefficient
	amount := flow * dt
	if !(amount > 0) || math.IsInf(amount, 0) {
		res.Status = StatusNoOutput
		return in.finish(res)
	}

	res.Zone = ZoneLabel(in.experiment, res.Situation, vessel, body, in.zones)
	subject := model.NewSubject(in.experiment, res.Situation, body.Name, res.Zone)
	res.SubjectID = subject.ID

	merged := MergeStore(gate.container, subject, amount, in.maxRecordData, in.transmitValue(body.Name), env.Time)
	res.Created = merged.Created
	res.Produced = merged.Merged
	for _, rec := range merged.Created {
		res.Produced += rec.Amount
	}

	if merged.Stored {
		in.latch.Reset()
		res.Status = fmt.Sprintf("%.2f/min", flow*60)
		if res.Zone != "" {
			res.Status += " (" + res.Zone + ")"
		}
		return in.finish(res)
	}

	if merged.Rejected {
		in.active = false
		res.Deactivated = true
		in.log.Warn(context.Background(), "container rejected record; instrument deactivated",
			logging.String("instrument", in.id),
			logging.String("subject", subject.ID),
		)
	}
	res.Status = StatusContainerFull
	if in.latch.Set() {
		res.Notified = true
		if in.notifier != nil {
			in.notifier.Notify(fmt.Sprintf("[%s] %s: Container Full.", in.cfg.PartTitle, subject.Title))
		}
	}
	return in.finish(res)
}

func (in *Instrument) finish(res TickResult) TickResult {
	if res.Status != in.status {
		in.log.Debug(context.Background(), "instrument status changed",
			logging.String("instrument", in.id),
			logging.String("from", in.status),
			logging.String("to", res.Status),
		)
	}
	in.status = res.Status
	return res
}

func (in *Instrument) transmitValue(body string) float64 {
	if in.cfg.Transmit == nil {
		return 1
	}
	return in.cfg.Transmit.Get(body)
}
