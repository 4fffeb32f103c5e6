// core/scenario_loader.go
package core

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/surface-survey/biome"
	"github.com/signalsfoundry/surface-survey/internal/logging"
	"github.com/signalsfoundry/surface-survey/internal/scalarmap"
	"github.com/signalsfoundry/surface-survey/kb"
	"github.com/signalsfoundry/surface-survey/model"
)

// Scenario is what LoadScenario read beyond the KB contents: how each
// vessel moves and which instruments it carries.
type Scenario struct {
	BodyNames     []string
	ExperimentIDs []string
	Vessels       []VesselSpec
	Instruments   []InstrumentSpec
}

// VesselSpec describes a vessel's motion and resource tanks.
type VesselSpec struct {
	ID        string
	Motion    MotionParams
	Resources []ResourceSpec
}

// ResourceSpec is one resource tank on a vessel.
type ResourceSpec struct {
	Name           string
	Amount         float64
	Capacity       float64
	RegenPerSecond float64
}

// ContainerSpec configures a science container.
type ContainerSpec struct {
	Capacity              int
	AllowRepeatedSubjects bool
}

// SeatSpec configures a crew seat next to the instrument.
type SeatSpec struct {
	Occupied bool
	// Container is the occupant's storage, nil if they carry none.
	Container *ContainerSpec
}

// InstrumentSpec is an instrument and the parts around it.
type InstrumentSpec struct {
	ID            string
	VesselID      string
	Active        bool
	ControlSource bool
	Config        InstrumentConfig
	Rate          RateModel
	// Container is nil when the part has no storage of its own.
	Container *ContainerSpec
	Seat      *SeatSpec
}

// YAML shapes of a scenario file.
type scenarioYAML struct {
	Bodies      []bodyYAML       `yaml:"bodies"`
	Experiments []experimentYAML `yaml:"experiments"`
	Vessels     []vesselYAML     `yaml:"vessels"`
	Instruments []instrumentYAML `yaml:"instruments"`
}

type bodyYAML struct {
	Name                    string     `yaml:"name"`
	RadiusM                 float64    `yaml:"radius_m"`
	Atmosphere              bool       `yaml:"atmosphere"`
	AtmosphereDepthM        float64    `yaml:"atmosphere_depth_m"`
	Ocean                   bool       `yaml:"ocean"`
	FlyingAltitudeThreshold float64    `yaml:"flying_altitude_threshold_m"`
	SpaceAltitudeThreshold  float64    `yaml:"space_altitude_threshold_m"`
	Biomes                  *biomeYAML `yaml:"biomes"`
}

type biomeYAML struct {
	Default           string          `yaml:"default"`
	ExactSearch       bool            `yaml:"exact_search"`
	NonExactThreshold *float64        `yaml:"non_exact_threshold"`
	Palette           []biomeAttrYAML `yaml:"palette"`
	Rows              []string        `yaml:"rows"` // row 0 is the north edge
}

type biomeAttrYAML struct {
	Name  string  `yaml:"name"`
	Color string  `yaml:"color"`
	Value float64 `yaml:"value"`
}

type experimentYAML struct {
	ID                string   `yaml:"id"`
	Title             string   `yaml:"title"`
	BaseValue         float64  `yaml:"base_value"`
	DataScale         float64  `yaml:"data_scale"`
	Situations        []string `yaml:"situations"`
	BiomeSituations   []string `yaml:"biome_situations"`
	RequireAtmosphere bool     `yaml:"require_atmosphere"`
}

type vesselYAML struct {
	ID           string                  `yaml:"id"`
	Name         string                  `yaml:"name"`
	Body         string                  `yaml:"body"`
	Situation    string                  `yaml:"situation"`
	LatitudeDeg  float64                 `yaml:"latitude_deg"`
	LongitudeDeg float64                 `yaml:"longitude_deg"`
	AltitudeM    float64                 `yaml:"altitude_m"`
	LandedAt     string                  `yaml:"landed_at"`
	Controllable *bool                   `yaml:"controllable"` // optional; defaults to true
	Motion       motionYAML              `yaml:"motion"`
	Resources    map[string]resourceYAML `yaml:"resources"`
}

type motionYAML struct {
	Source     string  `yaml:"source"` // "static" | "surface" | "tle"
	HeadingDeg float64 `yaml:"heading_deg"`
	SpeedMS    float64 `yaml:"speed_ms"`
	TLE1       string  `yaml:"tle1"`
	TLE2       string  `yaml:"tle2"`
}

type resourceYAML struct {
	Amount         float64 `yaml:"amount"`
	Capacity       float64 `yaml:"capacity"`
	RegenPerSecond float64 `yaml:"regen_per_second"`
}

type containerYAML struct {
	Capacity              int  `yaml:"capacity"`
	AllowRepeatedSubjects bool `yaml:"allow_repeated_subjects"`
}

type seatYAML struct {
	Occupied  bool           `yaml:"occupied"`
	Container *containerYAML `yaml:"container"`
}

type instrumentYAML struct {
	ID                   string         `yaml:"id"`
	Vessel               string         `yaml:"vessel"`
	Experiment           string         `yaml:"experiment"`
	Active               bool           `yaml:"active"`
	PartTitle            string         `yaml:"part_title"`
	SurveyName           string         `yaml:"survey_name"`
	MinVelocity          *float64       `yaml:"min_velocity"`
	RequireControlSource bool           `yaml:"require_control_source"`
	ControlSource        bool           `yaml:"control_source"`
	VelocityCurve        []string       `yaml:"velocity_curve"`
	ResourceName         string         `yaml:"resource_name"`
	ResourceRate         float64        `yaml:"resource_rate"`
	RateModel            string         `yaml:"rate_model"`
	SecondsPerRecord     float64        `yaml:"seconds_per_record"`
	SciencePerMin        yaml.Node      `yaml:"science_per_min"`
	XmitDataScalar       yaml.Node      `yaml:"xmit_data_scalar"`
	Container            *containerYAML `yaml:"container"`
	Seat                 *seatYAML      `yaml:"seat"`
}

// LoaderOption configures LoadScenario.
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	log              logging.Logger
	defaultRateModel string
}

// WithLoaderLogger routes scalar-map diagnostics to l.
func WithLoaderLogger(l logging.Logger) LoaderOption {
	return func(c *loaderConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDefaultRateModel sets the rate model for instruments that name none.
func WithDefaultRateModel(name string) LoaderOption {
	return func(c *loaderConfig) { c.defaultRateModel = name }
}

// LoadScenario reads a YAML scenario from r, registers bodies, experiments
// and vessels in store, and returns the vessel and instrument specs.
//
// It fails on YAML, structural and reference errors. Malformed per-body
// scalars are not errors; they fall back to the map default with a warning.
func LoadScenario(store *kb.KnowledgeBase, r io.Reader, opts ...LoaderOption) (*Scenario, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadScenario: kb is nil")
	}
	cfg := loaderConfig{log: logging.Noop(), defaultRateModel: RateModelZoneScaled}
	for _, opt := range opts {
		opt(&cfg)
	}

	var payload scenarioYAML
	if err := yaml.NewDecoder(r).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	result := &Scenario{}

	// 1) Bodies
	for _, b := range payload.Bodies {
		body, err := bodyFromYAML(b)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		if err := store.AddBody(body); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		result.BodyNames = append(result.BodyNames, body.Name)
	}

	// 2) Experiments
	for _, e := range payload.Experiments {
		exp, err := experimentFromYAML(e)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		if err := store.AddExperiment(exp); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		result.ExperimentIDs = append(result.ExperimentIDs, exp.ID)
	}

	// 3) Vessels
	for _, v := range payload.Vessels {
		vessel, spec, err := vesselFromYAML(v)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		if err := store.AddVessel(vessel); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		result.Vessels = append(result.Vessels, spec)
	}

	// 4) Instruments
	seen := make(map[string]struct{}, len(payload.Instruments))
	for _, in := range payload.Instruments {
		if in.ID == "" {
			return nil, fmt.Errorf("LoadScenario: instrument with empty id")
		}
		if _, dup := seen[in.ID]; dup {
			return nil, fmt.Errorf("LoadScenario: duplicate instrument %q", in.ID)
		}
		seen[in.ID] = struct{}{}
		if _, err := store.GetVessel(in.Vessel); err != nil {
			return nil, fmt.Errorf("LoadScenario: instrument %q: %w", in.ID, err)
		}

		spec, err := instrumentFromYAML(in, cfg)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: instrument %q: %w", in.ID, err)
		}
		result.Instruments = append(result.Instruments, spec)
	}

	return result, nil
}

func bodyFromYAML(b bodyYAML) (*model.Body, error) {
	if b.Name == "" {
		return nil, fmt.Errorf("body with empty name")
	}
	body := &model.Body{
		Name:                    b.Name,
		RadiusM:                 b.RadiusM,
		HasAtmosphere:           b.Atmosphere,
		AtmosphereDepth:         b.AtmosphereDepthM,
		HasOcean:                b.Ocean,
		FlyingAltitudeThreshold: b.FlyingAltitudeThreshold,
		SpaceAltitudeThreshold:  b.SpaceAltitudeThreshold,
	}
	if b.Biomes == nil {
		return body, nil
	}

	m, err := biomeFromYAML(*b.Biomes)
	if err != nil {
		return nil, fmt.Errorf("body %q biomes: %w", b.Name, err)
	}
	body.BiomeMap = m
	return body, nil
}

func biomeFromYAML(b biomeYAML) (*biome.Map, error) {
	attrs := make([]biome.Attribute, 0, len(b.Palette))
	defaultIdx := 0
	for i, a := range b.Palette {
		c, err := biome.ParseHex(a.Color)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", a.Name, err)
		}
		attrs = append(attrs, biome.Attribute{Name: a.Name, Color: c, Value: a.Value})
		if a.Name == b.Default {
			defaultIdx = i
		}
	}

	var (
		pixels []biome.Color
		width  int
	)
	for y, row := range b.Rows {
		cells := strings.Fields(row)
		if y == 0 {
			width = len(cells)
		} else if len(cells) != width {
			return nil, fmt.Errorf("row %d has %d pixels, want %d", y, len(cells), width)
		}
		for _, cell := range cells {
			c, err := biome.ParseHex(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", y, err)
			}
			pixels = append(pixels, c)
		}
	}

	m, err := biome.New(width, len(b.Rows), pixels, attrs, defaultIdx)
	if err != nil {
		return nil, err
	}
	m.ExactSearch = b.ExactSearch
	if b.NonExactThreshold != nil {
		m.NonExactThreshold = *b.NonExactThreshold
	}
	return m, nil
}

func experimentFromYAML(e experimentYAML) (*model.Experiment, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("experiment with empty id")
	}
	sits, err := model.ParseSituationMask(e.Situations)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", e.ID, err)
	}
	biomes, err := model.ParseSituationMask(e.BiomeSituations)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", e.ID, err)
	}
	title := e.Title
	if title == "" {
		title = e.ID
	}
	return &model.Experiment{
		ID:                e.ID,
		Title:             title,
		BaseValue:         e.BaseValue,
		DataScale:         e.DataScale,
		SituationMask:     sits,
		BiomeMask:         biomes,
		RequireAtmosphere: e.RequireAtmosphere,
	}, nil
}

func vesselFromYAML(v vesselYAML) (*model.Vessel, VesselSpec, error) {
	if v.ID == "" {
		return nil, VesselSpec{}, fmt.Errorf("vessel with empty id")
	}
	sit, err := vesselSituationFromString(v.Situation)
	if err != nil {
		return nil, VesselSpec{}, fmt.Errorf("vessel %q: %w", v.ID, err)
	}
	controllable := true
	if v.Controllable != nil {
		controllable = *v.Controllable
	}

	source := motionSourceFromString(v.Motion.Source)
	vessel := &model.Vessel{
		ID:           v.ID,
		Name:         v.Name,
		Body:         v.Body,
		Situation:    sit,
		LatitudeDeg:  v.LatitudeDeg,
		LongitudeDeg: v.LongitudeDeg,
		AltitudeM:    v.AltitudeM,
		LandedAt:     v.LandedAt,
		Controllable: controllable,
		Up:           model.Motion{Z: 1},
		MotionSource: source,
	}

	spec := VesselSpec{
		ID: v.ID,
		Motion: MotionParams{
			Source:     source,
			HeadingDeg: v.Motion.HeadingDeg,
			SpeedMS:    v.Motion.SpeedMS,
			TLE1:       v.Motion.TLE1,
			TLE2:       v.Motion.TLE2,
		},
	}
	for name, r := range v.Resources {
		capacity := r.Capacity
		if capacity == 0 {
			capacity = r.Amount
		}
		spec.Resources = append(spec.Resources, ResourceSpec{
			Name:           name,
			Amount:         r.Amount,
			Capacity:       capacity,
			RegenPerSecond: r.RegenPerSecond,
		})
	}
	return vessel, spec, nil
}

func instrumentFromYAML(in instrumentYAML, lc loaderConfig) (InstrumentSpec, error) {
	cfg := DefaultInstrumentConfig()
	cfg.ExperimentID = in.Experiment
	cfg.PartTitle = in.PartTitle
	if in.SurveyName != "" {
		cfg.SurveyName = in.SurveyName
	}
	if in.MinVelocity != nil {
		cfg.MinVelocity = *in.MinVelocity
	}
	cfg.RequireControlSource = in.RequireControlSource
	if in.ResourceName != "" {
		cfg.ResourceName = in.ResourceName
	}
	cfg.ResourceRate = in.ResourceRate

	curve, err := ParseFloatCurve(in.VelocityCurve)
	if err != nil {
		return InstrumentSpec{}, fmt.Errorf("velocity_curve: %w", err)
	}
	cfg.VelocityCurve = curve

	scoped := lc.log.With(logging.String("instrument", in.ID))
	perMinute := scalarmap.NewFloat64("sciencePerMin", 1, scalarmap.WithLogger[float64](scoped))
	if err := perMinute.LoadYAML(&in.SciencePerMin); err != nil {
		return InstrumentSpec{}, err
	}
	transmit := scalarmap.NewFloat64("xmitDataScalar", 1, scalarmap.WithLogger[float64](scoped))
	if err := transmit.LoadYAML(&in.XmitDataScalar); err != nil {
		return InstrumentSpec{}, err
	}
	cfg.Transmit = transmit

	rateName := in.RateModel
	if rateName == "" {
		rateName = lc.defaultRateModel
	}
	rate, err := NewRateModel(rateName, in.SecondsPerRecord, perMinute)
	if err != nil {
		return InstrumentSpec{}, err
	}

	spec := InstrumentSpec{
		ID:            in.ID,
		VesselID:      in.Vessel,
		Active:        in.Active,
		ControlSource: in.ControlSource,
		Config:        cfg,
		Rate:          rate,
		Container:     containerFromYAML(in.Container),
	}
	if in.Seat != nil {
		spec.Seat = &SeatSpec{
			Occupied:  in.Seat.Occupied,
			Container: containerFromYAML(in.Seat.Container),
		}
	}
	return spec, nil
}

func containerFromYAML(c *containerYAML) *ContainerSpec {
	if c == nil {
		return nil
	}
	return &ContainerSpec{Capacity: c.Capacity, AllowRepeatedSubjects: c.AllowRepeatedSubjects}
}

// vesselSituationFromString is tolerant of case and separators; empty means
// landed.
func vesselSituationFromString(s string) (model.VesselSituation, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	switch v {
	case "":
		return model.VesselLanded, nil
	case "SUBORBITAL":
		return model.VesselSubOrbital, nil
	case "ORBIT", "ORBITAL":
		return model.VesselOrbiting, nil
	}
	return model.ParseVesselSituation(v)
}

// motionSourceFromString maps the YAML "source" string. Unknown values are
// treated as static.
func motionSourceFromString(s string) model.MotionSource {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "surface", "rover", "ground":
		return model.MotionSourceSurface
	case "tle", "sgp4", "spacetrack", "orbital":
		return model.MotionSourceSpacetrack
	default:
		return model.MotionSourceStatic
	}
}
