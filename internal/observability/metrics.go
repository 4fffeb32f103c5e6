package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// SurveyCollector bundles Prometheus metrics for the survey simulator and
// provides helpers to wire them into gRPC servers and HTTP handlers.
type SurveyCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	Ticks             *prometheus.CounterVec
	DataAccrued       *prometheus.CounterVec
	ResourceConsumed  *prometheus.CounterVec
	ContainerFull     *prometheus.CounterVec
	ContainerRecords  *prometheus.GaugeVec
	ContainerData     *prometheus.GaugeVec
	TickDuration      prometheus.Histogram
	ActiveInstruments prometheus.Gauge
}

// NewSurveyCollector registers survey Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSurveyCollector(reg prometheus.Registerer) (*SurveyCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_rpc_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "survey_rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "survey_rpc_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"}), "survey_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_ticks_total",
		Help: "Instrument ticks evaluated, labeled by instrument and outcome status.",
	}, []string{"instrument", "status"}), "survey_ticks_total")
	if err != nil {
		return nil, err
	}

	accrued, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_data_accrued_total",
		Help: "Science data stored by each instrument.",
	}, []string{"instrument"}), "survey_data_accrued_total")
	if err != nil {
		return nil, err
	}

	consumed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_resource_consumed_total",
		Help: "Resource drawn by each instrument, labeled by resource name.",
	}, []string{"instrument", "resource"}), "survey_resource_consumed_total")
	if err != nil {
		return nil, err
	}

	full, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_container_full_total",
		Help: "Rising edges of the container-full condition per instrument.",
	}, []string{"instrument"}), "survey_container_full_total")
	if err != nil {
		return nil, err
	}

	records, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "survey_container_records",
		Help: "Records currently held by each storage container.",
	}, []string{"container"}), "survey_container_records")
	if err != nil {
		return nil, err
	}

	data, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "survey_container_data",
		Help: "Total science data currently held by each storage container.",
	}, []string{"container"}), "survey_container_data")
	if err != nil {
		return nil, err
	}

	tickDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "survey_tick_duration_seconds",
		Help:    "Wall-clock time spent processing one simulation tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}), "survey_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "survey_active_instruments",
		Help: "Current number of instruments toggled on.",
	}), "survey_active_instruments")
	if err != nil {
		return nil, err
	}

	return &SurveyCollector{
		gatherer:          gatherer,
		RPCRequests:       requests,
		RPCDurations:      durations,
		Ticks:             ticks,
		DataAccrued:       accrued,
		ResourceConsumed:  consumed,
		ContainerFull:     full,
		ContainerRecords:  records,
		ContainerData:     data,
		TickDuration:      tickDuration,
		ActiveInstruments: active,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *SurveyCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SurveyCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick records the outcome of one instrument tick. status is reduced
// to its category so that rate strings do not explode label cardinality.
func (c *SurveyCollector) ObserveTick(instrument, status, resource string, produced, consumed float64, fullEdge bool) {
	if c == nil {
		return
	}
	if c.Ticks != nil {
		c.Ticks.WithLabelValues(instrument, StatusLabel(status)).Inc()
	}
	if produced > 0 && c.DataAccrued != nil {
		c.DataAccrued.WithLabelValues(instrument).Add(produced)
	}
	if consumed > 0 && c.ResourceConsumed != nil {
		c.ResourceConsumed.WithLabelValues(instrument, resource).Add(consumed)
	}
	if fullEdge && c.ContainerFull != nil {
		c.ContainerFull.WithLabelValues(instrument).Inc()
	}
}

// SetContainer updates the gauges for one storage container.
func (c *SurveyCollector) SetContainer(container string, records int, data float64) {
	if c == nil {
		return
	}
	if c.ContainerRecords != nil {
		c.ContainerRecords.WithLabelValues(container).Set(float64(records))
	}
	if c.ContainerData != nil {
		c.ContainerData.WithLabelValues(container).Set(data)
	}
}

// SetActiveInstruments updates the active instrument gauge.
func (c *SurveyCollector) SetActiveInstruments(n int) {
	if c == nil || c.ActiveInstruments == nil {
		return
	}
	c.ActiveInstruments.Set(float64(n))
}

// ObserveTickDuration records how long one simulation tick took.
func (c *SurveyCollector) ObserveTickDuration(d time.Duration) {
	if c == nil || c.TickDuration == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

// StatusLabel maps a status line onto a bounded label value. Success lines
// such as "1.50/min (Shores)" collapse to "collecting".
func StatusLabel(status string) string {
	if status == "" {
		return "none"
	}
	if strings.HasSuffix(status, "/min") || strings.Contains(status, "/min (") {
		return "collecting"
	}
	return strings.ToLower(strings.ReplaceAll(status, " ", "_"))
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
