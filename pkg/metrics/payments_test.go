package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPaymentSessionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentSessionMetrics(reg)

	m.IncActive()
	m.IncActive()
	m.DecActive()
	m.IncResolved("paid")
	m.IncResolved("cancelled_by_timeout")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	gauge := findMetricFamily(mfs, "payment_sessions_active")
	if gauge == nil {
		t.Fatal("payment_sessions_active not exported")
	}
	if got := gauge.GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Fatalf("active gauge = %f, want 1", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_sessions_resolved", "outcome", "paid"); err != nil {
		t.Fatalf("fetch paid: %v", err)
	} else if got != 1 {
		t.Fatalf("paid counter = %f, want 1", got)
	}
}

func TestPaymentSessionMetrics_NilSafe(t *testing.T) {
	var m *PaymentSessionMetrics
	m.IncActive()
	m.DecActive()
	m.IncResolved("paid")
}

func TestImportMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewImportMetrics(reg)

	m.AddRows("orders", "imported", 3)
	m.AddRows("orders", "failed", 1)
	m.AddRows("orders", "imported", 0)
	m.ObserveDuration("orders", 200*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	mf := findMetricFamily(mfs, "import_rows_total")
	if mf == nil {
		t.Fatal("import_rows_total not exported")
	}
	var imported float64
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "outcome", "imported") {
			imported = metric.GetCounter().GetValue()
		}
	}
	if imported != 3 {
		t.Fatalf("imported counter = %f, want 3", imported)
	}

	if got, err := fetchHistogramSum(mfs, "import_duration_seconds", "kind", "orders"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("duration sum = %f, want > 0", got)
	}
}
