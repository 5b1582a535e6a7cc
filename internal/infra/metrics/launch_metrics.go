// internal/infra/metrics/launch_metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigagfun/launchium-token-creator/internal/application/usecase"
	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

const namespace = "launchium"

// LaunchMetrics implements usecase.LaunchObserver with Prometheus collectors.
type LaunchMetrics struct {
	registry *prometheus.Registry

	launches    *prometheus.CounterVec
	stepFails   *prometheus.CounterVec
	stepLatency *prometheus.HistogramVec
	evictions   prometheus.Counter
}

var _ usecase.LaunchObserver = (*LaunchMetrics)(nil)

// NewLaunchMetrics registers collectors on reg. A nil reg gets a fresh
// registry with the Go and process collectors.
func NewLaunchMetrics(reg *prometheus.Registry) *LaunchMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}

	m := &LaunchMetrics{
		registry: reg,
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Launch runs by mode and outcome.",
		}, []string{"mode", "outcome"}),
		stepFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Failed pipeline steps.",
		}, []string{"mode", "step"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Pipeline step latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode", "step"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Launch sessions removed by expiry or capacity.",
		}),
	}
	reg.MustRegister(m.launches, m.stepFails, m.stepLatency, m.evictions)
	return m
}

func (m *LaunchMetrics) ObserveStep(mode launch.Mode, step launch.Step, elapsed time.Duration, err error) {
	m.stepLatency.WithLabelValues(string(mode), string(step)).Observe(elapsed.Seconds())
	if err != nil {
		m.stepFails.WithLabelValues(string(mode), string(step)).Inc()
	}
}

func (m *LaunchMetrics) ObserveLaunch(mode launch.Mode, err error) {
	m.launches.WithLabelValues(string(mode), outcome(err)).Inc()
}

// SessionEvicted counts sessions dropped before Execute.
func (m *LaunchMetrics) SessionEvicted(n int) {
	if n > 0 {
		m.evictions.Add(float64(n))
	}
}

// TrackSessions exports the live session count read from live.
func (m *LaunchMetrics) TrackSessions(live func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_live",
		Help:      "Prepared launch sessions awaiting execution.",
	}, func() float64 { return float64(live()) }))
}

// Handler serves the registry in the exposition format.
func (m *LaunchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case launch.FailedStep(err) == launch.StepValidate:
		return "rejected"
	default:
		return "failed"
	}
}
