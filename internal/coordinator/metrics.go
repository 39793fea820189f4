package coordinator

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreamware/inboxdeploy/internal/cluster"
	"github.com/dreamware/inboxdeploy/internal/deploy"
	"github.com/dreamware/inboxdeploy/internal/stage"
)

// Event outcomes used as the "outcome" label.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeInterrupted = "interrupted"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// Metrics holds the coordinator's collectors on a private registry so that
// several coordinators can live in one process.
type Metrics struct {
	registry      *prometheus.Registry
	instances     *prometheus.GaugeVec
	events        *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		instances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "inboxdeploy",
			Name:      "instances",
			Help:      "Registered instances by health status.",
		}, []string{"status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inboxdeploy",
			Name:      "lifecycle_events_total",
			Help:      "Lifecycle events handled, by phase and outcome.",
		}, []string{"phase", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "inboxdeploy",
			Name:      "lifecycle_event_seconds",
			Help:      "Time spent answering a lifecycle event, including the instance wait.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"phase"}),
	}
	m.registry.MustRegister(
		m.instances,
		m.events,
		m.eventDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveEvent records one lifecycle event that started at start.
func (m *Metrics) ObserveEvent(phase deploy.Phase, start time.Time, err error) {
	m.events.WithLabelValues(string(phase), Outcome(err)).Inc()
	m.eventDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())
}

// SetInstances publishes the per-status instance counts.
func (m *Metrics) SetInstances(r *Registry) {
	counts := map[string]int{}
	for _, inst := range r.Instances() {
		counts[inst.Status]++
	}
	m.instances.Reset()
	for status, n := range counts {
		m.instances.WithLabelValues(status).Set(float64(n))
	}
}

// Outcome classifies an event error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, stage.ErrUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, deploy.ErrInterrupted):
		return OutcomeInterrupted
	case errors.Is(err, deploy.ErrInvalidProperty), errors.Is(err, cluster.ErrInvalidTemplate):
		return OutcomeInvalid
	}
	return OutcomeError
}
