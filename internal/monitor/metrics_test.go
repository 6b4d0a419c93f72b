package monitor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStepUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordStep(0.6, 0.4)

	if got := testutil.ToFloat64(m.RiskAppetiteMean); got != 0.6 {
		t.Fatalf("RiskAppetiteMean=%v, want 0.6", got)
	}
	if got := testutil.ToFloat64(m.SystemLiquidity); got != 0.4 {
		t.Fatalf("SystemLiquidity=%v, want 0.4", got)
	}
	if got := testutil.ToFloat64(m.StepsTotal); got != 1 {
		t.Fatalf("StepsTotal=%v, want 1", got)
	}
}

func TestRecordDefaultAndCascadeIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDefault()
	m.RecordDefault()
	m.RecordCascade(3)

	if got := testutil.ToFloat64(m.DefaultsTotal); got != 2 {
		t.Fatalf("DefaultsTotal=%v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CascadesTotal); got != 1 {
		t.Fatalf("CascadesTotal=%v, want 1", got)
	}
}
