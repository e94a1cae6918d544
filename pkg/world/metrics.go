package world

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the run's prometheus instruments. The core never listens on
// an HTTP port itself — registration is the caller's job via a supplied
// Registerer — but it exercises client_golang directly so cycle counts,
// event throughput, and debt accrual are observable by whatever adapter
// wires in a /metrics endpoint.
type Metrics struct {
	CyclesTotal        prometheus.Counter
	EventsAppliedTotal prometheus.Counter
	DebtBits           prometheus.Gauge
	VesselsActive      prometheus.Gauge
	InvariantFailures  prometheus.Counter
}

// NewMetrics creates and registers the run's instruments against reg. Pass
// a prometheus.NewRegistry() (or nil for a no-op sink) rather than the
// global DefaultRegisterer, so multiple concurrent runs in one process
// don't collide on metric names.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biovm",
			Name:      "cycles_total",
			Help:      "Total world cycles advanced.",
		}),
		EventsAppliedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biovm",
			Name:      "events_applied_total",
			Help:      "Total events applied to the concentration spine.",
		}),
		DebtBits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "biovm",
			Name:      "epistemic_debt_bits",
			Help:      "Current cumulative epistemic debt in bits.",
		}),
		VesselsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "biovm",
			Name:      "vessels_active",
			Help:      "Number of seeded vessels in the run.",
		}),
		InvariantFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biovm",
			Name:      "invariant_failures_total",
			Help:      "Total fatal invariant violations encountered.",
		}),
	}
	reg.MustRegister(m.CyclesTotal, m.EventsAppliedTotal, m.DebtBits, m.VesselsActive, m.InvariantFailures)
	return m
}
