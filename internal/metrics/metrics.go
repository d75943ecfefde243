// Package metrics exposes Prometheus instrumentation for valuation runs plus
// a lightweight runtime memory collector for verbose summaries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ontiyonke/quantdsl/internal/telemetry"
)

// Set bundles the collectors of one valuation run. A nil *Set is valid and
// records nothing, so instrumentation can be optional.
type Set struct {
	unitsCompleted    prometheus.Counter
	rate              prometheus.Gauge
	percentComplete   prometheus.Gauge
	valuationDuration prometheus.Histogram
}

// NewSet registers the run collectors with reg.
func NewSet(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		unitsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quanthedge",
			Name:      "units_completed_total",
			Help:      "Units of valuation work completed.",
		}),
		rate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "quanthedge",
			Name:      "unit_rate_per_second",
			Help:      "Recent-weighted throughput of valuation work.",
		}),
		percentComplete: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "quanthedge",
			Name:      "percent_complete",
			Help:      "Valuation progress percentage.",
		}),
		valuationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quanthedge",
			Name:      "valuation_duration_seconds",
			Help:      "Wall-clock duration of complete valuation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
	}
}

// UnitCompleted counts one completed unit of work.
func (s *Set) UnitCompleted() {
	if s == nil {
		return
	}
	s.unitsCompleted.Inc()
}

// ObserveSnapshot records the progress gauges from a telemetry snapshot.
func (s *Set) ObserveSnapshot(snap telemetry.Snapshot) {
	if s == nil {
		return
	}
	s.rate.Set(snap.Rate)
	s.percentComplete.Set(snap.Percent)
}

// ObserveValuationDuration records the wall-clock time of a completed run.
func (s *Set) ObserveValuationDuration(d time.Duration) {
	if s == nil {
		return
	}
	s.valuationDuration.Observe(d.Seconds())
}
