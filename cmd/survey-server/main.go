package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/surface-survey/internal/api"
	"github.com/signalsfoundry/surface-survey/internal/app"
	"github.com/signalsfoundry/surface-survey/internal/config"
	"github.com/signalsfoundry/surface-survey/internal/logging"
	"github.com/signalsfoundry/surface-survey/internal/observability"
)

const serviceName = "surface-survey"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "survey-server",
		Short:        "Run the survey simulation with its HTTP API and gRPC health service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reloads := make(chan *config.Config, 1)
			var log logging.Logger = logging.Noop()
			cfg, err := config.Watch(configPath,
				func(next *config.Config, e fsnotify.Event) {
					// keep only the newest revision
					select {
					case <-reloads:
					default:
					}
					reloads <- next
				},
				func(err error) {
					log.Warn(context.Background(), "ignoring invalid config revision", logging.Err(err))
				},
			)
			if err != nil {
				return err
			}
			log = app.NewLogger(cfg.Logging)

			grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return fmt.Errorf("listen grpc %s: %w", cfg.Server.GRPCAddr, err)
			}
			httpLis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
			if err != nil {
				_ = grpcLis.Close()
				return fmt.Errorf("listen http %s: %w", cfg.Server.HTTPAddr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log, listeners{grpc: grpcLis, http: httpLis}, reloads)
		},
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a config file (default: search ./, ./configs, /etc/surface-survey)")
	return cmd
}

type listeners struct {
	grpc net.Listener
	http net.Listener
}

// run serves until ctx is done. It owns both listeners.
func run(ctx context.Context, cfg *config.Config, log logging.Logger, lis listeners, reloads <-chan *config.Config) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFrom(cfg.Tracing), log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	rt, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	healthSrv := health.NewServer()
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			api.RequestIDUnaryServerInterceptor(log),
			rt.Collector.UnaryServerInterceptor(),
		),
	)
	healthpb.RegisterHealthServer(server, healthSrv)
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	httpSrv := &http.Server{
		Handler: api.NewRouter(rt.Sim, api.Options{
			Logger:      log,
			Metrics:     rt.Collector.Handler(),
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info(ctx, "starting gRPC server", logging.String("addr", lis.grpc.Addr().String()))
		if err := server.Serve(lis.grpc); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		log.Info(ctx, "starting HTTP API", logging.String("addr", lis.http.Addr().String()))
		if err := httpSrv.Serve(lis.http); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	simCtx, stopSim := context.WithCancel(ctx)
	simDone := runSimLoop(simCtx, rt, cfg.Simulation.Duration, reloads, log)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down survey server")
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	stopSim()
	<-simDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	server.GracefulStop()
	return runErr
}

// runSimLoop drives the clock and applies configuration reloads until ctx
// is done. The returned channel closes once both have stopped.
func runSimLoop(ctx context.Context, rt *app.Runtime, duration time.Duration, reloads <-chan *config.Config, log logging.Logger) <-chan struct{} {
	done := make(chan struct{})
	clockDone := rt.Clock.Start(ctx, duration)
	go func() {
		defer close(done)
		for {
			select {
			case <-clockDone:
				// a bounded run finished; keep serving the final state
				<-ctx.Done()
				return
			case next, ok := <-reloads:
				if !ok {
					reloads = nil
					continue
				}
				if err := rt.ApplySimulation(next.Simulation); err != nil {
					log.Warn(ctx, "could not apply simulation settings", logging.Err(err))
					continue
				}
				log.Info(ctx, "applied simulation settings",
					logging.Float64("warp_rate", next.Simulation.WarpRate),
					logging.String("warp_mode", next.Simulation.WarpMode),
				)
			}
		}
	}()
	return done
}
