package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/hanconv/pkg/domain"
)

const namespace = "hanconv"

// Metrics holds the collectors fed by Hooks.
type Metrics struct {
	Conversions *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	InFlight    prometheus.Gauge
	CacheHits   *prometheus.CounterVec
	Probes      *prometheus.CounterVec
	Installs    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Total number of conversions by action and failure kind (empty on success)",
			},
			[]string{"action", "kind"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "conversion_duration_seconds",
				Help:      "Wall-clock duration of conversions",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"action"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "conversions_in_flight",
				Help:      "Number of conversions currently running",
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Conversions answered from the result cache",
			},
			[]string{"action"},
		),
		Probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Runtime and library probes by target and presence",
			},
			[]string{"target", "present"},
		),
		Installs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "installs_total",
				Help:      "Package manager runs by result",
			},
			[]string{"success"},
		),
	}

	for _, c := range []prometheus.Collector{m.Conversions, m.Duration, m.InFlight, m.CacheHits, m.Probes, m.Installs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns observer callbacks that record into m.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnConvertStart: func(_ context.Context, e *domain.ConvertEvent) {
			m.InFlight.Inc()
		},
		OnConvertDone: func(_ context.Context, e *domain.ConvertEvent) {
			m.InFlight.Dec()
			action := string(e.Action)
			m.Conversions.WithLabelValues(action, string(e.Kind)).Inc()
			m.Duration.WithLabelValues(action).Observe(e.Duration.Seconds())
			if e.Cached {
				m.CacheHits.WithLabelValues(action).Inc()
			}
		},
		OnProbe: func(_ context.Context, e *domain.ProbeEvent) {
			m.Probes.WithLabelValues(e.Target, strconv.FormatBool(e.Present)).Inc()
		},
		OnInstall: func(_ context.Context, e *domain.InstallEvent) {
			m.Installs.WithLabelValues(strconv.FormatBool(e.Success)).Inc()
		},
	}
}
