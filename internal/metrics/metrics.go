// Package metrics exposes Prometheus counters for the roulette.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the roulette collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	spins         *prometheus.CounterVec
	challenges    *prometheus.CounterVec
	grantFailures prometheus.Counter
	grantDuration prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		spins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roulette_spins_total",
			Help: "Spin attempts by outcome.",
		}, []string{"outcome"}),
		challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roulette_challenges_total",
			Help: "Captcha events by result.",
		}, []string{"result"}),
		grantFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roulette_grants_failed_total",
			Help: "Grants that failed to persist.",
		}),
		grantDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roulette_grant_duration_seconds",
			Help:    "Time spent committing a grant to the ledger.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	reg.MustRegister(
		m.spins,
		m.challenges,
		m.grantFailures,
		m.grantDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SpinOutcome counts one spin attempt.
func (m *Metrics) SpinOutcome(outcome string) {
	if m == nil {
		return
	}
	m.spins.WithLabelValues(outcome).Inc()
}

// Challenge counts one captcha event: issued, wrong or solved.
func (m *Metrics) Challenge(result string) {
	if m == nil {
		return
	}
	m.challenges.WithLabelValues(result).Inc()
}

// ObserveGrant records a ledger write.
func (m *Metrics) ObserveGrant(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.grantDuration.Observe(d.Seconds())
	if err != nil {
		m.grantFailures.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
