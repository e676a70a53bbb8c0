package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const namespace = "ngmod"

// Metrics holds the moderation counters on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	decisions     *prometheus.CounterVec
	escalations   prometheus.Counter
	enforcedMutes prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Moderation commands executed, by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warn_escalations_total",
			Help:      "Warnings that reached the threshold and turned into a ban",
		}),
		enforcedMutes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enforced_mutes_total",
			Help:      "Messages suppressed because the sender was muted",
		}),
	}
	m.registry.MustRegister(
		m.decisions,
		m.escalations,
		m.enforcedMutes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Decision(command, outcome string) {
	m.decisions.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) Escalation() {
	m.escalations.Inc()
}

func (m *Metrics) EnforcedMute() {
	m.enforcedMutes.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Tracing installs the SDK tracer provider globally for as long as it runs.
type Tracing struct {
	provider *sdktrace.TracerProvider
	sampler  sdktrace.Sampler
}

func NewTracing(sampler sdktrace.Sampler) *Tracing {
	if sampler == nil {
		sampler = sdktrace.ParentBased(sdktrace.NeverSample())
	}
	return &Tracing{sampler: sampler}
}

func (t *Tracing) Start(ctx context.Context) error {
	_ = ctx
	t.provider = sdktrace.NewTracerProvider(sdktrace.WithSampler(t.sampler))
	otel.SetTracerProvider(t.provider)
	log.Debug("tracer provider installed")
	return nil
}

func (t *Tracing) Stop(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func (t *Tracing) Provider() *sdktrace.TracerProvider {
	return t.provider
}
