// Package telemetry wires Prometheus counters/histograms and an
// OpenTelemetry tracer/meter, and records the Orchestrator's signals
// through its Metrics interface, grounded on the teacher's internal/observability.MetricsCollector
// shape (periodic flush, Redis-optional, nil-safe when unconfigured) but
// targeting the Orchestrator's three signals instead of an actor system's.
package telemetry

import (
	"context"
	"time"

	"dispatchsim/internal/config"
	"dispatchsim/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry implements orchestrator.Metrics with Prometheus counters and
// histograms, plus an OTel meter bridged onto the same registry (always
// set up) and an OTLP trace exporter (set up only when OpenTelemetry is
// enabled).
type Telemetry struct {
	registry *prometheus.Registry
	tracer   trace.Tracer
	meter    metric.Meter
	logger   *logging.Logger

	requestsProcessed *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	tripsCompleted    prometheus.Counter
	tripFare          prometheus.Histogram
	deadheadMiles     prometheus.Counter
	overallScore      prometheus.Gauge

	evaluationsCompleted metric.Int64Counter

	shutdown func(context.Context) error
}

// New constructs a Telemetry instance. Prometheus collectors are always
// registered (cheap, in-process); the OTel tracer exporter only starts
// when cfg.OpenTelemetry.TracingEnabled is set.
func New(ctx context.Context, cfg *config.OpenTelemetryConfig, logger *logging.Logger) (*Telemetry, error) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	t := &Telemetry{
		registry: registry,
		logger:   logger.WithComponent("telemetry"),
		tracer:   otel.Tracer("dispatchsim/orchestrator"),
		shutdown: func(context.Context) error { return nil },

		requestsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatchsim_requests_processed_total",
			Help: "Requests processed by the orchestrator, labeled by outcome.",
		}, []string{"outcome"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatchsim_agent_latency_seconds",
			Help:    "Wall-clock latency of RoutingAgent calls per request.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		tripsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispatchsim_trips_completed_total",
			Help: "Trips completed (normally or force-completed at horizon).",
		}),
		tripFare: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatchsim_trip_fare_dollars",
			Help:    "Distribution of completed-trip fares.",
			Buckets: prometheus.LinearBuckets(0, 5, 20),
		}),
		deadheadMiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispatchsim_deadhead_miles_total",
			Help: "Cumulative deadhead miles across all completed trips.",
		}),
		overallScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dispatchsim_overall_score",
			Help: "Overall score of the most recently completed evaluation run.",
		}),
	}

	if err := t.initMeter(registry); err != nil {
		return nil, err
	}

	if cfg != nil && cfg.TracingEnabled {
		shutdown, err := t.startTracing(ctx, cfg)
		if err != nil {
			return nil, err
		}
		t.shutdown = shutdown
	}

	return t, nil
}

// initMeter bridges an OTel meter onto the same Prometheus registry the
// handler-facing collectors above are registered against, so OTel
// instruments surface through the one /metrics endpoint instead of a
// second exporter pipeline.
func (t *Telemetry) initMeter(registry *prometheus.Registry) error {
	reader, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.meter = provider.Meter("dispatchsim/orchestrator")

	counter, err := t.meter.Int64Counter(
		"dispatchsim_evaluations_completed_total",
		metric.WithDescription("Evaluation runs completed, recorded via the OTel meter."),
	)
	if err != nil {
		return err
	}
	t.evaluationsCompleted = counter

	return nil
}

func (t *Telemetry) startTracing(ctx context.Context, cfg *config.OpenTelemetryConfig) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		attribute.String("environment", cfg.Environment),
	}
	for k, v := range cfg.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	t.tracer = tp.Tracer("dispatchsim/orchestrator")

	t.logger.WithField("endpoint", cfg.OTLPEndpoint).Info("OpenTelemetry tracing enabled")
	return tp.Shutdown, nil
}

// Registry exposes the Prometheus registry for the httpapi's /metrics handler.
func (t *Telemetry) Registry() *prometheus.Registry { return t.registry }

// Tracer exposes the configured tracer for span creation around
// suspension points outside the orchestrator package (e.g. httpapi handlers).
func (t *Telemetry) Tracer() trace.Tracer { return t.tracer }

// StartSpan begins a span with the given name.
func (t *Telemetry) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name)
}

// RequestProcessed implements orchestrator.Metrics.
func (t *Telemetry) RequestProcessed(_ context.Context, outcome string, agentLatency time.Duration) {
	t.requestsProcessed.WithLabelValues(outcome).Inc()
	t.requestLatency.WithLabelValues(outcome).Observe(agentLatency.Seconds())
}

// TripCompleted implements orchestrator.Metrics.
func (t *Telemetry) TripCompleted(_ context.Context, fare, deadheadMiles float64) {
	t.tripsCompleted.Inc()
	t.tripFare.Observe(fare)
	t.deadheadMiles.Add(deadheadMiles)
}

// EvaluationCompleted implements orchestrator.Metrics.
func (t *Telemetry) EvaluationCompleted(ctx context.Context, overallScore float64) {
	t.overallScore.Set(overallScore)
	t.evaluationsCompleted.Add(ctx, 1)
}

// Shutdown flushes and stops the tracer provider, if one was started.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}
