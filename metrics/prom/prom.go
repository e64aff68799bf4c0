// Package prom exports table metrics to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/camtable/cam"
)

// Adapter implements cam.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	writes    *prometheus.CounterVec
	integrity prometheus.Counter
	valid     prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "search_hits_total",
			Help:        "Searches that resolved to a slot",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "search_misses_total",
			Help:        "Searches that matched no slot",
			ConstLabels: constLabels,
		}),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "writes_total",
				Help:        "Proposed writes by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		integrity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "integrity_errors_total",
			Help:        "Queries answered by more than one entry",
			ConstLabels: constLabels,
		}),
		valid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "valid_entries",
			Help:        "Number of valid slots",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.writes, a.integrity, a.valid)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Write counts a finished write with an outcome label.
func (a *Adapter) Write(o cam.WriteOutcome) {
	a.writes.WithLabelValues(outcome(o)).Inc()
}

func (a *Adapter) Integrity() { a.integrity.Inc() }

// Size updates the valid-entry gauge.
func (a *Adapter) Size(valid int) { a.valid.Set(float64(valid)) }

// outcome maps WriteOutcome to a stable label value.
func outcome(o cam.WriteOutcome) string {
	switch o {
	case cam.WriteCommitted:
		return "committed"
	case cam.WriteDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Compile-time check: ensure Adapter implements cam.Metrics.
var _ cam.Metrics = (*Adapter)(nil)
