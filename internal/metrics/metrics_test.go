package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ontiyonke/quantdsl/internal/telemetry"
)

func TestSet_RecordsRunCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	set := NewSet(reg)

	set.UnitCompleted()
	set.UnitCompleted()
	set.ObserveSnapshot(telemetry.Snapshot{Rate: 1.5, Percent: 40})
	set.ObserveValuationDuration(2 * time.Second)

	if got := testutil.ToFloat64(set.unitsCompleted); got != 2 {
		t.Errorf("units_completed_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(set.rate); got != 1.5 {
		t.Errorf("unit_rate_per_second = %v, want 1.5", got)
	}
	if got := testutil.ToFloat64(set.percentComplete); got != 40 {
		t.Errorf("percent_complete = %v, want 40", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 4 {
		t.Errorf("registered %d metric families, want 4", len(families))
	}
}

func TestSet_NilIsNoOp(t *testing.T) {
	var set *Set
	// Must not panic.
	set.UnitCompleted()
	set.ObserveSnapshot(telemetry.Snapshot{})
	set.ObserveValuationDuration(time.Second)
}

func TestMemoryCollector(t *testing.T) {
	snap := NewMemoryCollector().Snapshot()
	if snap.HeapAlloc == 0 {
		t.Error("HeapAlloc = 0, want a live heap")
	}
}
