package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the store's business counters. A nil *Metrics is a no-op.
type Metrics struct {
	webhooks    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	checkouts   *prometheus.CounterVec
	fxLookups   *prometheus.CounterVec
	jobRuns     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhooks_total",
			Help:      "Payment webhooks by provider and result.",
		}, []string{"provider", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Applied order status transitions by target status.",
		}, []string{"status"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by provider and result.",
		}, []string{"provider", "result"}),
		fxLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fx_rate_lookups_total",
			Help:      "Exchange rate lookups by the source that answered.",
		}, []string{"source"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_job_runs_total",
			Help:      "Background job runs by job and result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.webhooks, m.transitions, m.checkouts, m.fxLookups, m.jobRuns)
	return m
}

func (m *Metrics) webhook(provider, result string) {
	if m != nil {
		m.webhooks.WithLabelValues(provider, result).Inc()
	}
}

func (m *Metrics) transition(status string) {
	if m != nil {
		m.transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) checkout(provider, result string) {
	if m != nil {
		m.checkouts.WithLabelValues(provider, result).Inc()
	}
}

func (m *Metrics) fxLookup(source string) {
	if m != nil {
		m.fxLookups.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) jobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}
