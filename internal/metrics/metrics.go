package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	quotaDecisions     *prometheus.CounterVec
	analyses           *prometheus.CounterVec
	webhookDeliveries  *prometheus.CounterVec
	dashboardDiscarded prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		quotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macrotrack",
			Name:      "quota_decisions_total",
			Help:      "Quota checks by plan and outcome.",
		}, []string{"plan", "outcome"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macrotrack",
			Name:      "analyses_total",
			Help:      "AI analysis calls by mode and outcome.",
		}, []string{"mode", "outcome"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macrotrack",
			Name:      "webhook_deliveries_total",
			Help:      "Webhook notifications by backend and outcome.",
		}, []string{"backend", "outcome"}),
		dashboardDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "macrotrack",
			Name:      "dashboard_snapshots_discarded_total",
			Help:      "Dashboard snapshots dropped because a newer one completed first.",
		}),
	}
	reg.MustRegister(
		m.quotaDecisions,
		m.analyses,
		m.webhookDeliveries,
		m.dashboardDiscarded,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) QuotaDecision(plan, outcome string) {
	if m == nil {
		return
	}
	m.quotaDecisions.WithLabelValues(plan, outcome).Inc()
}

func (m *Metrics) Analysis(mode, outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) WebhookDelivery(backend, outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(backend, outcome).Inc()
}

func (m *Metrics) DashboardDiscarded() {
	if m == nil {
		return
	}
	m.dashboardDiscarded.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
