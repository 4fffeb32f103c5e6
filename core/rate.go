package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/surface-survey/internal/scalarmap"
	"github.com/signalsfoundry/surface-survey/model"
)

// Rate model names accepted by NewRateModel.
const (
	RateModelFixed       = "fixed"
	RateModelZoneScaled  = "zone_scaled"
	defaultPerMinuteRate = 1.0
)

// FixedRate fills one record every SecondsPerRecord seconds. With
// SecondsPerRecord unset it falls back to PerMinute data units per minute
// scaled by the experiment's data scale.
type FixedRate struct {
	SecondsPerRecord float64
	PerMinute        float64
}

func (FixedRate) Name() string { return RateModelFixed }

func (r FixedRate) DataRate(exp *model.Experiment, _ string) float64 {
	if exp == nil {
		return 0
	}
	if r.SecondsPerRecord > 0 {
		return exp.MaxRecordData() / r.SecondsPerRecord
	}
	return exp.DataScale / 60 * r.PerMinute
}

// ZoneScaledRate produces DataScale/60 * PerMinute[body] per second.
type ZoneScaledRate struct {
	PerMinute *scalarmap.Map[float64]
}

func (ZoneScaledRate) Name() string { return RateModelZoneScaled }

func (r ZoneScaledRate) DataRate(exp *model.Experiment, body string) float64 {
	if exp == nil {
		return 0
	}
	perMinute := defaultPerMinuteRate
	if r.PerMinute != nil {
		perMinute = r.PerMinute.Get(body)
	}
	return exp.DataScale / 60 * perMinute
}

// NewRateModel selects a rate model by configuration name. An empty name
// selects the zone-scaled model.
func NewRateModel(name string, secondsPerRecord float64, perMinute *scalarmap.Map[float64]) (RateModel, error) {
	switch name {
	case RateModelZoneScaled, "":
		return ZoneScaledRate{PerMinute: perMinute}, nil
	case RateModelFixed:
		fallback := defaultPerMinuteRate
		if perMinute != nil {
			fallback = perMinute.Default()
		}
		return FixedRate{SecondsPerRecord: secondsPerRecord, PerMinute: fallback}, nil
	default:
		return nil, fmt.Errorf("unknown rate model %q", name)
	}
}

// SpeedCoefficient maps horizontal speed to a production multiplier. Speeds
// below minVelocity yield 0; a degenerate curve yields 1.
func SpeedCoefficient(speed, minVelocity float64, curve FloatCurve) float64 {
	if math.IsNaN(speed) || speed < minVelocity {
		return 0
	}
	if curve.Degenerate() {
		return 1
	}
	return curve.Evaluate(speed)
}

// PowerResult is the outcome of drawing the tick's resource budget.
type PowerResult struct {
	Coefficient float64
	Requested   float64
	Granted     float64
}

// ApplyPower requests ratePerSecond * coeff * dt from pool and scales coeff
// by the granted fraction, capped at 1. A zero rate draws nothing.
func ApplyPower(pool ResourcePool, resource string, ratePerSecond, coeff, dt float64) PowerResult {
	if ratePerSecond <= 0 {
		return PowerResult{Coefficient: coeff}
	}
	requested := ratePerSecond * coeff * dt
	if requested <= 0 {
		return PowerResult{Coefficient: coeff}
	}
	if pool == nil {
		return PowerResult{Requested: requested}
	}
	granted := pool.Request(resource, requested)
	if granted < 0 {
		granted = 0
	}
	return PowerResult{
		Coefficient: coeff * math.Min(1, granted/requested),
		Requested:   requested,
		Granted:     granted,
	}
}
