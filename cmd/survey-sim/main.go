package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/surface-survey/internal/app"
	"github.com/signalsfoundry/surface-survey/internal/config"
	"github.com/signalsfoundry/surface-survey/internal/logging"
)

type options struct {
	configPath  string
	scenario    string
	duration    time.Duration
	tick        time.Duration
	accelerated bool
	warpRate    float64
	warpMode    string
	persist     bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "survey-sim",
		Short: "Run a surface survey scenario for a bounded duration",
		Long: `survey-sim loads a scenario, drives every instrument through the
accrual loop and prints each instrument's final status.

Examples:
  survey-sim --scenario configs/scenario.yaml --duration 10m --accelerated
  survey-sim --config configs/config.yaml --warp 4 --warp-mode high`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, opts)
			if err := config.ValidateConfig(cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, cfg, app.NewLogger(cfg.Logging), cmd.OutOrStdout())
		},
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to a config file (default: search ./, ./configs)")
	f.StringVar(&opts.scenario, "scenario", "", "scenario YAML file")
	f.DurationVar(&opts.duration, "duration", 60*time.Second, "total simulation duration")
	f.DurationVar(&opts.tick, "tick", time.Second, "tick interval")
	f.BoolVar(&opts.accelerated, "accelerated", true, "run as fast as possible instead of in real time")
	f.Float64Var(&opts.warpRate, "warp", 1, "time warp rate (>= 1)")
	f.StringVar(&opts.warpMode, "warp-mode", "physics", "warp mode: physics or high")
	f.BoolVar(&opts.persist, "persist", false, "persist records and activity flags to the configured database")
	return cmd
}

// applyFlags overrides configuration with flags the user set explicitly.
// duration and accelerated always apply since they define a bounded run.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts options) {
	flags := cmd.Flags()
	if flags.Changed("scenario") {
		cfg.Scenario.Path = opts.scenario
	}
	if flags.Changed("tick") {
		cfg.Simulation.Tick = opts.tick
	}
	if flags.Changed("warp") {
		cfg.Simulation.WarpRate = opts.warpRate
	}
	if flags.Changed("warp-mode") {
		cfg.Simulation.WarpMode = opts.warpMode
	}
	if flags.Changed("persist") {
		cfg.Database.Enabled = opts.persist
	}
	if flags.Changed("duration") || cfg.Simulation.Duration == 0 {
		cfg.Simulation.Duration = opts.duration
	}
	if flags.Changed("accelerated") || !cfg.Simulation.Accelerated {
		cfg.Simulation.Accelerated = opts.accelerated
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger, out io.Writer) error {
	rt, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	log.Info(ctx, "starting simulation",
		logging.String("duration", cfg.Simulation.Duration.String()),
		logging.String("tick", cfg.Simulation.Tick.String()),
		logging.Bool("accelerated", cfg.Simulation.Accelerated),
		logging.Float64("warp_rate", cfg.Simulation.WarpRate),
		logging.String("warp_mode", cfg.Simulation.WarpMode),
	)
	<-rt.Clock.Start(ctx, cfg.Simulation.Duration)
	log.Info(ctx, "simulation complete", logging.String("sim_time", rt.Sim.Now().Format(time.RFC3339)))

	return printSummary(out, rt)
}

func printSummary(out io.Writer, rt *app.Runtime) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTRUMENT\tACTIVE\tSTATUS\tRECORDS\tDATA")
	for _, st := range rt.Sim.Instruments() {
		fmt.Fprintf(tw, "%s\t%v\t%s\t%d\t%.2f\n", st.ID, st.Active, st.Status, st.Records, st.StoredData)
	}
	for _, n := range rt.Sim.Notifications() {
		fmt.Fprintf(tw, "\n%s\t%s", n.Time.Format(time.RFC3339), n.Message)
	}
	if len(rt.Sim.Notifications()) > 0 {
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
