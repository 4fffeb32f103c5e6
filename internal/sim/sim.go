// Package sim drives survey instruments from the time controller: it moves
// vessels, refills their tanks, ticks every instrument and persists what
// they store.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/signalsfoundry/surface-survey/core"
	"github.com/signalsfoundry/surface-survey/internal/logging"
	"github.com/signalsfoundry/surface-survey/internal/observability"
	"github.com/signalsfoundry/surface-survey/internal/storage"
	"github.com/signalsfoundry/surface-survey/kb"
	"github.com/signalsfoundry/surface-survey/model"
	"github.com/signalsfoundry/surface-survey/timectrl"
)

var (
	// ErrInstrumentNotFound indicates a requested instrument does not exist.
	ErrInstrumentNotFound = errors.New("instrument not found")
	// ErrContainerNotFound indicates a requested container does not exist.
	ErrContainerNotFound = errors.New("container not found")
)

const defaultNotificationLimit = 100

// Repository persists records and activity flags between runs.
type Repository interface {
	SaveRecords(ctx context.Context, containerID string, records []model.Record) error
	ListRecords(ctx context.Context, containerID string) ([]*model.Record, error)
	SaveInstrumentActive(ctx context.Context, instrumentID string, active bool) error
	LoadInstrumentActive(ctx context.Context, instrumentID string) (bool, error)
}

// MetricsRecorder receives per-tick observations.
type MetricsRecorder interface {
	ObserveTick(instrument, status, resource string, produced, consumed float64, fullEdge bool)
	SetContainer(container string, records int, data float64)
	SetActiveInstruments(n int)
	ObserveTickDuration(d time.Duration)
}

// Notification is a one-shot message raised by an instrument.
type Notification struct {
	Time         time.Time `json:"time"`
	InstrumentID string    `json:"instrument_id"`
	Message      string    `json:"message"`
}

// Simulation owns the runtime state of a loaded scenario.
type Simulation struct {
	// mu serialises ticks against toggles and reads. Take it before any
	// container; containers are not safe for concurrent use.
	mu sync.RWMutex

	kb      *kb.KnowledgeBase
	log     logging.Logger
	metrics MetricsRecorder
	repo    Repository

	vessels     map[string]*vesselRuntime
	vesselOrder []string

	instruments map[string]*instrumentRuntime
	order       []string
	containers  map[string]*storage.ScienceContainer

	now           time.Time
	notifications []Notification
	notifyLimit   int

	statusLog *rate.Sometimes

	flushInterval time.Duration
	lastFlush     time.Time

	// sitMu guards situations, which the KB subscription updates while a
	// tick holds mu.
	sitMu       sync.Mutex
	situations  map[string]model.VesselSituation
	unsubscribe func()
}

type vesselRuntime struct {
	id     string
	motion core.MotionModel
	tanks  *Tanks
}

type instrumentRuntime struct {
	inst          *core.Instrument
	vesselID      string
	controlSource bool
	container     *storage.ScienceContainer
	seat          *crewSeat
	last          core.TickResult
}

// crewSeat adapts a seat spec to core.Seat.
type crewSeat struct {
	occupied  bool
	container *storage.ScienceContainer
}

func (s *crewSeat) Occupied() bool { return s.occupied }

func (s *crewSeat) OccupantContainer() core.Container {
	if s.container == nil {
		return nil
	}
	return s.container
}

// Option customises a Simulation.
type Option func(*Simulation)

// WithLogger injects a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Simulation) { s.metrics = m }
}

// WithRepository enables persistence of records and activity flags.
func WithRepository(r Repository) Option {
	return func(s *Simulation) { s.repo = r }
}

// WithFlushInterval batches record writes; 0 flushes after every tick.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Simulation) {
		if d >= 0 {
			s.flushInterval = d
		}
	}
}

// WithStatusLogInterval logs a status summary at most once per interval.
// A zero interval disables the summary.
func WithStatusLogInterval(d time.Duration) Option {
	return func(s *Simulation) {
		if d > 0 {
			s.statusLog = &rate.Sometimes{Interval: d}
		} else {
			s.statusLog = nil
		}
	}
}

// WithNotificationLimit bounds the retained notification history.
func WithNotificationLimit(n int) Option {
	return func(s *Simulation) {
		if n > 0 {
			s.notifyLimit = n
		}
	}
}

// New builds the runtime for scenario against store and starts every
// instrument. Vessels referenced by instruments must exist in store.
func New(store *kb.KnowledgeBase, scenario *core.Scenario, opts ...Option) (*Simulation, error) {
	if store == nil {
		return nil, fmt.Errorf("knowledge base is required")
	}
	if scenario == nil {
		scenario = &core.Scenario{}
	}
	s := &Simulation{
		kb:          store,
		log:         logging.Noop(),
		vessels:     make(map[string]*vesselRuntime),
		instruments: make(map[string]*instrumentRuntime),
		containers:  make(map[string]*storage.ScienceContainer),
		notifyLimit: defaultNotificationLimit,
		situations:  make(map[string]model.VesselSituation),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	for _, spec := range scenario.Vessels {
		if _, err := store.GetVessel(spec.ID); err != nil {
			return nil, err
		}
		s.vessels[spec.ID] = &vesselRuntime{
			id:     spec.ID,
			motion: core.NewMotionModel(spec.Motion),
			tanks:  NewTanks(spec.Resources),
		}
		s.vesselOrder = append(s.vesselOrder, spec.ID)
	}
	sort.Strings(s.vesselOrder)

	for _, spec := range scenario.Instruments {
		if err := s.addInstrument(spec); err != nil {
			return nil, err
		}
	}
	sort.Strings(s.order)

	for _, v := range store.ListVessels() {
		s.situations[v.ID] = v.Situation
	}
	s.unsubscribe = store.Subscribe(s.onKBEvent)
	s.updateGaugesLocked()
	return s, nil
}

func (s *Simulation) addInstrument(spec core.InstrumentSpec) error {
	if _, exists := s.instruments[spec.ID]; exists {
		return fmt.Errorf("duplicate instrument %q", spec.ID)
	}
	if _, err := s.kb.GetVessel(spec.VesselID); err != nil {
		return fmt.Errorf("instrument %q: %w", spec.ID, err)
	}
	vr, ok := s.vessels[spec.VesselID]
	if !ok {
		vr = &vesselRuntime{id: spec.VesselID, motion: &core.StaticMotionModel{}, tanks: NewTanks(nil)}
		s.vessels[spec.VesselID] = vr
		s.vesselOrder = append(s.vesselOrder, spec.VesselID)
		sort.Strings(s.vesselOrder)
	}

	rt := &instrumentRuntime{
		inst: core.NewInstrument(spec.ID, spec.Config,
			core.WithInstrumentLogger(s.log),
			core.WithActive(spec.Active),
		),
		vesselID:      spec.VesselID,
		controlSource: spec.ControlSource,
	}

	deps := core.Dependencies{
		Registry: s.kb,
		Pool:     vr.tanks,
		Zones:    core.RasterZones{},
		Rate:     spec.Rate,
		Notifier: core.NotifierFunc(func(msg string) { s.notifyLocked(spec.ID, msg) }),
	}
	if spec.Container != nil {
		rt.container = storage.NewScienceContainer(containerID(spec.ID), spec.Container.Capacity, spec.Container.AllowRepeatedSubjects)
		s.containers[rt.container.ID()] = rt.container
		deps.Container = rt.container
	}
	if spec.Seat != nil {
		rt.seat = &crewSeat{occupied: spec.Seat.Occupied}
		if spec.Seat.Container != nil {
			rt.seat.container = storage.NewScienceContainer(seatContainerID(spec.ID), spec.Seat.Container.Capacity, spec.Seat.Container.AllowRepeatedSubjects)
			s.containers[rt.seat.container.ID()] = rt.seat.container
		}
		deps.Seat = rt.seat
	}
	rt.inst.Start(deps)

	s.instruments[spec.ID] = rt
	s.order = append(s.order, spec.ID)
	return nil
}

func containerID(instrumentID string) string     { return instrumentID + "-storage" }
func seatContainerID(instrumentID string) string { return instrumentID + "-seat" }

// Restore reloads persisted records and activity flags. It is a no-op
// without a repository.
func (s *Simulation) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.containers {
		records, err := s.repo.ListRecords(ctx, id)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			c.Restore(records)
			s.log.Info(ctx, "restored records",
				logging.String("container", id),
				logging.Int("count", len(records)),
			)
		}
	}
	for _, id := range s.order {
		active, err := s.repo.LoadInstrumentActive(ctx, id)
		if errors.Is(err, storage.ErrInstrumentStateNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		s.instruments[id].inst.SetActive(active)
	}
	s.updateGaugesLocked()
	return nil
}

// Close detaches the simulation from the knowledge base.
func (s *Simulation) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// OnTick advances every vessel and instrument by one controller tick.
// It is meant to be registered with timectrl.TimeController.AddListener.
func (s *Simulation) OnTick(info timectrl.TickInfo) {
	started := time.Now()
	ctx, span := observability.StartTickSpan(context.Background(), info.Index, info.Time, info.WarpRate)
	defer span.End()

	s.mu.Lock()
	s.now = info.Time
	s.moveVesselsLocked(ctx, info)
	deactivated := s.tickInstrumentsLocked(ctx, info)
	s.updateGaugesLocked()
	var batch map[string][]model.Record
	if s.repo != nil && (s.flushInterval == 0 || started.Sub(s.lastFlush) >= s.flushInterval) {
		batch = s.drainLocked()
		s.lastFlush = started
	}
	s.mu.Unlock()

	s.persist(ctx, batch, deactivated)
	if s.metrics != nil {
		s.metrics.ObserveTickDuration(time.Since(started))
	}
}

func (s *Simulation) moveVesselsLocked(ctx context.Context, info timectrl.TickInfo) {
	for _, id := range s.vesselOrder {
		vr := s.vessels[id]
		v, err := s.kb.GetVessel(id)
		if err != nil {
			continue
		}
		body, err := s.kb.Body(v.Body)
		if err != nil {
			s.log.Warn(ctx, "vessel orbits unknown body", logging.String("vessel", id), logging.String("body", v.Body))
			continue
		}
		if err := s.kb.UpdateVessel(id, func(v *model.Vessel) {
			vr.motion.Update(info.Time, info.Delta, v, body)
		}); err != nil {
			s.log.Warn(ctx, "vessel update failed", logging.String("vessel", id), logging.Err(err))
		}
		vr.tanks.Regen(info.Delta.Seconds())
	}
}

func (s *Simulation) tickInstrumentsLocked(ctx context.Context, info timectrl.TickInfo) []string {
	var deactivated []string
	highWarp := info.WarpMode == timectrl.WarpHigh
	for _, id := range s.order {
		rt := s.instruments[id]

		env := core.Environment{
			Time:          info.Time,
			Delta:         info.Delta,
			WarpRate:      info.WarpRate,
			HighWarp:      highWarp,
			ControlSource: rt.controlSource,
		}
		if v, err := s.kb.GetVessel(rt.vesselID); err == nil {
			env.Vessel = &v
			if body, err := s.kb.Body(v.Body); err == nil {
				env.Body = body
			}
		}

		_, span := observability.StartInstrumentSpan(ctx, id)
		res := rt.inst.Tick(env)
		span.SetAttributes(
			attribute.String("instrument.status", res.Status),
			attribute.Bool("instrument.skipped", res.Skipped),
			attribute.Float64("instrument.produced", res.Produced),
		)
		span.End()

		if res.Skipped {
			continue
		}
		rt.last = res
		if res.SubjectID != "" {
			if rt.container != nil {
				rt.container.MarkDirty(res.SubjectID)
			}
			if rt.seat != nil && rt.seat.container != nil {
				rt.seat.container.MarkDirty(res.SubjectID)
			}
		}
		if res.Deactivated {
			deactivated = append(deactivated, id)
		}
		if s.metrics != nil {
			s.metrics.ObserveTick(id, res.Status, rt.inst.Config().ResourceName, res.Produced, res.Consumed, res.Notified)
		}
	}

	if s.statusLog != nil {
		s.statusLog.Do(func() { s.logStatusLocked(ctx) })
	}
	return deactivated
}

func (s *Simulation) logStatusLocked(ctx context.Context) {
	for _, id := range s.order {
		rt := s.instruments[id]
		s.log.Info(ctx, "instrument status",
			logging.String("instrument", id),
			logging.Bool("active", rt.inst.Active()),
			logging.String("status", rt.inst.Status()),
			logging.String("zone", rt.last.Zone),
			logging.Float64("speed_ms", rt.last.Speed),
		)
	}
}

func (s *Simulation) notifyLocked(instrumentID, msg string) {
	s.notifications = append(s.notifications, Notification{Time: s.now, InstrumentID: instrumentID, Message: msg})
	if over := len(s.notifications) - s.notifyLimit; over > 0 {
		s.notifications = append(s.notifications[:0], s.notifications[over:]...)
	}
	s.log.Info(context.Background(), msg, logging.String("instrument", instrumentID))
}

func (s *Simulation) updateGaugesLocked() {
	if s.metrics == nil {
		return
	}
	active := 0
	for _, rt := range s.instruments {
		if rt.inst.Active() {
			active++
		}
	}
	s.metrics.SetActiveInstruments(active)
	for id, c := range s.containers {
		s.metrics.SetContainer(id, c.Len(), c.TotalData())
	}
}

func (s *Simulation) drainLocked() map[string][]model.Record {
	batch := make(map[string][]model.Record)
	for id, c := range s.containers {
		if recs := c.Drain(); len(recs) > 0 {
			batch[id] = recs
		}
	}
	return batch
}

func (s *Simulation) persist(ctx context.Context, batch map[string][]model.Record, deactivated []string) {
	if s.repo == nil {
		return
	}
	for id, recs := range batch {
		if err := s.repo.SaveRecords(ctx, id, recs); err != nil {
			s.log.Error(ctx, "failed to persist records", logging.String("container", id), logging.Err(err))
		}
	}
	for _, id := range deactivated {
		if err := s.repo.SaveInstrumentActive(ctx, id, false); err != nil {
			s.log.Error(ctx, "failed to persist instrument state", logging.String("instrument", id), logging.Err(err))
		}
	}
}

// Flush writes every pending record regardless of the flush interval.
func (s *Simulation) Flush(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.mu.Lock()
	batch := s.drainLocked()
	s.lastFlush = time.Now()
	s.mu.Unlock()
	s.persist(ctx, batch, nil)
}

// Toggle flips an instrument's activity flag and persists it.
func (s *Simulation) Toggle(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	rt, ok := s.instruments[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %q", ErrInstrumentNotFound, id)
	}
	active := rt.inst.Toggle()
	rt.last = core.TickResult{}
	s.updateGaugesLocked()
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.SaveInstrumentActive(ctx, id, active); err != nil {
			// undo so memory keeps matching the stored flag
			s.mu.Lock()
			if rt.inst.Active() == active {
				rt.inst.SetActive(!active)
				rt.last = core.TickResult{}
				s.updateGaugesLocked()
			}
			s.mu.Unlock()
			s.log.Warn(ctx, "toggle rolled back",
				logging.String("instrument", id),
				logging.Err(err),
			)
			return !active, fmt.Errorf("persist instrument %q: %w", id, err)
		}
	}

	s.log.Info(ctx, "instrument toggled",
		logging.String("instrument", id),
		logging.Bool("active", active),
	)
	return active, nil
}

func (s *Simulation) onKBEvent(ev kb.Event) {
	if ev.Type != kb.EventVesselUpdated {
		return
	}
	s.sitMu.Lock()
	prev, seen := s.situations[ev.Vessel.ID]
	s.situations[ev.Vessel.ID] = ev.Vessel.Situation
	s.sitMu.Unlock()
	if seen && prev != ev.Vessel.Situation {
		s.log.Info(context.Background(), "vessel situation changed",
			logging.String("vessel", ev.Vessel.ID),
			logging.String("from", prev.String()),
			logging.String("to", ev.Vessel.Situation.String()),
		)
	}
}
