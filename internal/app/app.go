// Package app assembles a runnable simulation from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/signalsfoundry/surface-survey/core"
	"github.com/signalsfoundry/surface-survey/internal/config"
	"github.com/signalsfoundry/surface-survey/internal/logging"
	"github.com/signalsfoundry/surface-survey/internal/observability"
	"github.com/signalsfoundry/surface-survey/internal/sim"
	"github.com/signalsfoundry/surface-survey/internal/storage"
	"github.com/signalsfoundry/surface-survey/kb"
	"github.com/signalsfoundry/surface-survey/timectrl"
)

// Runtime is a loaded scenario wired to its clock, metrics and storage.
type Runtime struct {
	Store     *kb.KnowledgeBase
	Scenario  *core.Scenario
	Sim       *sim.Simulation
	Clock     *timectrl.TimeController
	Collector *observability.SurveyCollector

	db  *gorm.DB
	log logging.Logger
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg config.LoggingConfig) logging.Logger {
	return logging.New(logging.Config{
		Level:   cfg.Level,
		Format:  cfg.Format,
		Backend: cfg.Backend,
	})
}

// Build loads the scenario named by cfg and wires every collaborator.
// reg may be nil to use the default Prometheus registry.
func Build(ctx context.Context, cfg *config.Config, log logging.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if log == nil {
		log = logging.Noop()
	}
	rt := &Runtime{Store: kb.NewKnowledgeBase(), log: log}

	f, err := os.Open(cfg.Scenario.Path)
	if err != nil {
		return nil, fmt.Errorf("open scenario %q: %w", cfg.Scenario.Path, err)
	}
	defer f.Close()

	rt.Scenario, err = core.LoadScenario(rt.Store, f,
		core.WithLoaderLogger(log),
		core.WithDefaultRateModel(cfg.Simulation.RateModel),
	)
	if err != nil {
		return nil, fmt.Errorf("load scenario %q: %w", cfg.Scenario.Path, err)
	}
	log.Info(ctx, "loaded scenario",
		logging.String("path", cfg.Scenario.Path),
		logging.Int("bodies", len(rt.Scenario.BodyNames)),
		logging.Int("experiments", len(rt.Scenario.ExperimentIDs)),
		logging.Int("vessels", len(rt.Scenario.Vessels)),
		logging.Int("instruments", len(rt.Scenario.Instruments)),
	)

	rt.Collector, err = observability.NewSurveyCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	opts := []sim.Option{
		sim.WithLogger(log),
		sim.WithMetrics(rt.Collector),
		sim.WithStatusLogInterval(cfg.Simulation.StatusLogInterval),
	}
	if cfg.Database.Enabled {
		rt.db, err = storage.NewConnection(storage.DatabaseConfig{
			Type:        cfg.Database.Type,
			Path:        cfg.Database.Path,
			URL:         cfg.Database.URL,
			MaxOpen:     cfg.Database.Pool.MaxOpen,
			MaxIdle:     cfg.Database.Pool.MaxIdle,
			MaxLifetime: cfg.Database.Pool.MaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err := storage.AutoMigrate(rt.db); err != nil {
			_ = storage.Close(rt.db)
			return nil, err
		}
		opts = append(opts,
			sim.WithRepository(storage.NewRepository(rt.db)),
			sim.WithFlushInterval(cfg.Database.FlushInterval),
		)
		log.Info(ctx, "persistence enabled", logging.String("type", cfg.Database.Type))
	}

	rt.Sim, err = sim.New(rt.Store, rt.Scenario, opts...)
	if err != nil {
		rt.closeDB()
		return nil, err
	}
	if err := rt.Sim.Restore(ctx); err != nil {
		rt.Sim.Close()
		rt.closeDB()
		return nil, fmt.Errorf("restore state: %w", err)
	}

	mode := timectrl.RealTime
	if cfg.Simulation.Accelerated {
		mode = timectrl.Accelerated
	}
	rt.Clock = timectrl.NewTimeController(time.Now().UTC(), cfg.Simulation.Tick, mode)
	if err := rt.ApplySimulation(cfg.Simulation); err != nil {
		rt.Sim.Close()
		rt.closeDB()
		return nil, err
	}
	rt.Clock.AddListener(rt.Sim.OnTick)
	return rt, nil
}

// ApplySimulation pushes warp settings onto the running clock. It is safe
// to call while the clock runs.
func (rt *Runtime) ApplySimulation(cfg config.SimulationConfig) error {
	mode, err := timectrl.ParseWarpMode(cfg.WarpMode)
	if err != nil {
		return err
	}
	return rt.Clock.SetWarp(cfg.WarpRate, mode)
}

// Close flushes pending records and releases the database.
func (rt *Runtime) Close(ctx context.Context) {
	if rt.Sim != nil {
		rt.Sim.Flush(ctx)
		rt.Sim.Close()
	}
	rt.closeDB()
}

func (rt *Runtime) closeDB() {
	if rt.db == nil {
		return
	}
	if err := storage.Close(rt.db); err != nil {
		rt.log.Warn(context.Background(), "database close failed", logging.Err(err))
	}
	rt.db = nil
}
