// Package metrics exposes Prometheus counters for the billing flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	webhookEvents    *prometheus.CounterVec
	checkoutSessions *prometheus.CounterVec
	scanDecisions    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chefscan_webhook_events_total",
			Help: "Webhook deliveries by provider and reconciliation outcome.",
		}, []string{"provider", "outcome"}),
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chefscan_checkout_sessions_total",
			Help: "Checkout initiations by provider and result.",
		}, []string{"provider", "status"}),
		scanDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chefscan_scan_decisions_total",
			Help: "Scan authorization decisions by tier and verdict.",
		}, []string{"tier", "verdict"}),
	}
	reg.MustRegister(m.webhookEvents, m.checkoutSessions, m.scanDecisions)
	return m
}

func (m *Metrics) WebhookEvent(provider, outcome string) {
	m.webhookEvents.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) CheckoutSession(provider, status string) {
	m.checkoutSessions.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) ScanDecision(tier, verdict string) {
	m.scanDecisions.WithLabelValues(tier, verdict).Inc()
}
