// Package monitor exposes Prometheus metrics for the kernel and session
// layers: steps executed, defaults, cascades, and risk-appetite
// distribution. Mirrors the prior metrics surface, swapping trading
// counters for simulation ones.
package monitor

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector this module registers. Callers create
// one Metrics per process; the API server holds it and serves the registry
// at /metrics. No session or kernel code records into these collectors, so
// they report their zero values.
type Metrics struct {
	StepsTotal       prometheus.Counter
	DefaultsTotal    prometheus.Counter
	CascadesTotal    prometheus.Counter
	CascadeSize      prometheus.Histogram
	ActiveSessions   prometheus.Gauge
	RiskAppetiteMean prometheus.Gauge
	SystemLiquidity  prometheus.Gauge
}

// NewMetrics constructs and registers every collector against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "banksim", Name: "steps_total", Help: "Total kernel steps executed across all sessions.",
		}),
		DefaultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "banksim", Name: "defaults_total", Help: "Total bank defaults observed across all sessions.",
		}),
		CascadesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "banksim", Name: "cascades_total", Help: "Total cascade events emitted.",
		}),
		CascadeSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "banksim", Name: "cascade_size", Help: "Number of secondary defaults per cascade.",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "banksim", Name: "active_sessions", Help: "Sessions currently in RUNNING or PAUSED state.",
		}),
		RiskAppetiteMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "banksim", Name: "risk_appetite_mean", Help: "Mean risk appetite across solvent banks, last step.",
		}),
		SystemLiquidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "banksim", Name: "system_liquidity", Help: "Network-wide cash/totalAssets ratio, last step.",
		}),
	}

	reg.MustRegister(
		m.StepsTotal, m.DefaultsTotal, m.CascadesTotal, m.CascadeSize,
		m.ActiveSessions, m.RiskAppetiteMean, m.SystemLiquidity,
	)
	return m
}

// RecordStep updates the per-step gauges from a step's observed bank pool.
func (m *Metrics) RecordStep(meanRiskAppetite, systemLiquidity float64) {
	m.StepsTotal.Inc()
	m.RiskAppetiteMean.Set(meanRiskAppetite)
	m.SystemLiquidity.Set(systemLiquidity)
}

// RecordDefault increments the default counter.
func (m *Metrics) RecordDefault() {
	m.DefaultsTotal.Inc()
}

// RecordCascade increments the cascade counter and observes its size.
func (m *Metrics) RecordCascade(size int) {
	m.CascadesTotal.Inc()
	m.CascadeSize.Observe(float64(size))
}
