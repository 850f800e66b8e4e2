package memjoy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	calls    *prometheus.CounterVec
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

const metricsNamespace = "memjoy"

// Create call metrics and pool gauges and register them with the given
// registerer. A nil registerer disables metrics.
func newMetrics(registerer prometheus.Registerer, pool Pool) *metrics {
	if registerer == nil {
		return nil
	}

	m := &metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "calls_total",
				Help:      "Total number of cache calls by verb and outcome",
			},
			[]string{"verb", "status"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "attempts_total",
				Help:      "Total number of cache call attempts by verb",
			},
			[]string{"verb"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "call_duration_seconds",
				Help:      "Cache call duration in seconds, including retries",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"verb"},
		),
	}

	registerer.MustRegister(
		m.calls,
		m.attempts,
		m.duration,
		newPoolGauge("pool_idle_connections", "Number of idle pooled connections", pool, func(s PoolStats) int { return s.Idle }),
		newPoolGauge("pool_outstanding_connections", "Number of pooled connections in use or being dialed", pool, func(s PoolStats) int { return s.Outstanding }),
		newPoolGauge("pool_waiters", "Number of callers waiting for a pooled connection", pool, func(s PoolStats) int { return s.Waiters }),
	)

	return m
}

func newPoolGauge(name, help string, pool Pool, field func(PoolStats) int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		},
		func() float64 { return float64(field(pool.Stats())) },
	)
}

func (m *metrics) observe(verb Verb, err error, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.calls.WithLabelValues(string(verb), callStatus(err)).Inc()
	m.attempts.WithLabelValues(string(verb)).Add(float64(attempts))
	m.duration.WithLabelValues(string(verb)).Observe(elapsed.Seconds())
}

func callStatus(err error) string {
	switch err.(type) {
	case nil:
		return "success"
	case *AcquireError:
		return "acquire_error"
	case *TimeoutError:
		return "timeout"
	case *RetriesExhaustedError:
		return "retries_exhausted"
	}

	return "error"
}
