package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentSessionMetrics records the state of in-flight payment holds.
type PaymentSessionMetrics struct {
	active     prometheus.Gauge
	resolution *prometheus.CounterVec
}

// NewPaymentSessionMetrics registers payment session metrics on the provided registerer.
func NewPaymentSessionMetrics(reg prometheus.Registerer) *PaymentSessionMetrics {
	if reg == nil {
		return &PaymentSessionMetrics{}
	}
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "payment_sessions_active",
		Help: "Payment holds currently counting down.",
	})
	resolution := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_sessions_resolved",
		Help: "Payment holds by terminal outcome.",
	}, []string{"outcome"})
	reg.MustRegister(active, resolution)
	return &PaymentSessionMetrics{active: active, resolution: resolution}
}

// IncActive records a newly started payment hold.
func (p *PaymentSessionMetrics) IncActive() {
	if p == nil || p.active == nil {
		return
	}
	p.active.Inc()
}

// DecActive records a payment hold leaving the active set.
func (p *PaymentSessionMetrics) DecActive() {
	if p == nil || p.active == nil {
		return
	}
	p.active.Dec()
}

// IncResolved counts a terminal outcome (paid, cancelled_by_user, cancelled_by_timeout).
func (p *PaymentSessionMetrics) IncResolved(outcome string) {
	if p == nil || p.resolution == nil {
		return
	}
	p.resolution.WithLabelValues(normalizeLabel(outcome)).Inc()
}
