package hedge

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ontiyonke/quantdsl/internal/engine"
	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
)

func constVec(n int, v float64) []float64 {
	vec := make([]float64, n)
	for i := range vec {
		vec[i] = v
	}
	return vec
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// staticLookup resolves prices from a map keyed "COMMODITY|2006-01-02".
func staticLookup(prices map[string][]float64) PriceLookup {
	return func(commodity string, date time.Time) ([]float64, bool) {
		vec, ok := prices[commodity+"|"+date.Format("2006-01-02")]
		return vec, ok
	}
}

// TestAggregate_SingleDatedBucket works the central-difference arithmetic by
// hand: V(+ε)=105, V(-ε)=95, S=50, ε=0.01 on every path gives
// delta = 10/(2·0.01·50) = 10, so the hedge is -10 units and the cash in is
// 10·50 = 500, all with zero dispersion.
func TestAggregate_SingleDatedBucket(t *testing.T) {
	const paths = 1000
	result := engine.Result{
		ID:        "r1",
		FairValue: engine.ScalarFairValue(100),
		PerturbedValues: map[string][]float64{
			"OIL-2020-1":  constVec(paths, 105),
			"-OIL-2020-1": constVec(paths, 95),
		},
	}
	lookup := staticLookup(map[string][]float64{
		"OIL|2020-01-01": constVec(paths, 50),
	})

	report, err := Aggregate(result, lookup, Params{
		PerturbationFactor: 0.01,
		PathCount:          paths,
		ObservationDate:    time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if report.FairValueMean != 100 || report.FairValueStderr != 0 {
		t.Errorf("fair value = %v ± %v, want 100 ± 0", report.FairValueMean, report.FairValueStderr)
	}
	if len(report.Periods) != 1 {
		t.Fatalf("len(Periods) = %d, want 1", len(report.Periods))
	}

	p := report.Periods[0]
	if p.Commodity != "OIL" {
		t.Errorf("Commodity = %q, want OIL", p.Commodity)
	}
	if p.Date == nil || !p.Date.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v, want 2020-01-01", p.Date)
	}
	if !approxEqual(p.HedgeUnitsMean, -10, 1e-12) {
		t.Errorf("HedgeUnitsMean = %v, want -10", p.HedgeUnitsMean)
	}
	if !approxEqual(p.CashInMean, 500, 1e-9) {
		t.Errorf("CashInMean = %v, want 500", p.CashInMean)
	}
	if !approxEqual(p.PriceMean, 50, 1e-12) {
		t.Errorf("PriceMean = %v, want 50", p.PriceMean)
	}
	for name, v := range map[string]float64{
		"HedgeUnitsStderr": p.HedgeUnitsStderr,
		"CashInStderr":     p.CashInStderr,
		"PriceStd":         p.PriceStd,
		"TotalUnitsStderr": p.TotalUnitsStderr,
	} {
		if !approxEqual(v, 0, 1e-12) {
			t.Errorf("%s = %v, want 0 for constant samples", name, v)
		}
	}
	if !approxEqual(p.CumPosMean, -10, 1e-12) || !approxEqual(p.CumCashMean, 500, 1e-9) {
		t.Errorf("cumulative = (%v, %v), want (-10, 500)", p.CumPosMean, p.CumCashMean)
	}
}

// TestAggregate_SpotBucket verifies that a bare commodity key prices at the
// observation date, reports no delivery date and mirrors its own statistics
// into the cumulative fields without touching the chain.
func TestAggregate_SpotBucket(t *testing.T) {
	const paths = 4
	observation := time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)
	result := engine.Result{
		ID:        "r2",
		FairValue: engine.ScalarFairValue(0),
		PerturbedValues: map[string][]float64{
			"GAS":  constVec(paths, 21),
			"-GAS": constVec(paths, 19),
		},
	}
	lookup := staticLookup(map[string][]float64{
		"GAS|2020-06-15": constVec(paths, 10),
	})

	report, err := Aggregate(result, lookup, Params{
		PerturbationFactor: 0.05,
		PathCount:          paths,
		ObservationDate:    observation,
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(report.Periods) != 1 {
		t.Fatalf("len(Periods) = %d, want 1", len(report.Periods))
	}

	p := report.Periods[0]
	if p.Date != nil {
		t.Errorf("Date = %v, want nil for spot bucket", p.Date)
	}
	// delta = 2/(2·0.05·10) = 2, hedge = -2, cash = 20.
	if !approxEqual(p.HedgeUnitsMean, -2, 1e-12) {
		t.Errorf("HedgeUnitsMean = %v, want -2", p.HedgeUnitsMean)
	}
	if !approxEqual(p.CashInMean, 20, 1e-12) {
		t.Errorf("CashInMean = %v, want 20", p.CashInMean)
	}
	if p.CumPosMean != p.HedgeUnitsMean || p.CumCashMean != p.CashInMean {
		t.Errorf("cumulative fields differ from own statistics: %+v", p)
	}
	if p.TotalUnitsStderr != 0 {
		t.Errorf("TotalUnitsStderr = %v, want 0 for spot bucket", p.TotalUnitsStderr)
	}
}

// TestAggregate_CumulativeChain runs two dated buckets with varying per-path
// vectors and verifies the cumulative statistics come from per-path sums, and
// that the spot bucket between them stays out of the chain.
func TestAggregate_CumulativeChain(t *testing.T) {
	const paths = 2
	// Bucket 1: up-down = {2, 6}, price = {10, 10}, ε=0.05
	// hedge1 = -{2,6}/(2·0.05·10) = {-2, -6}, cash1 = {20, 60}
	// Bucket 2: up-down = {4, 4}, price = {20, 20}
	// hedge2 = -{4,4}/(2·0.05·20) = {-2, -2}, cash2 = {40, 40}
	result := engine.Result{
		ID:        "r3",
		FairValue: engine.ScalarFairValue(0),
		PerturbedValues: map[string][]float64{
			"OIL-2020-1":  {1, 3},
			"-OIL-2020-1": {-1, -3},
			"OIL-2020-2":  {2, 2},
			"-OIL-2020-2": {-2, -2},
			"OIL":         {0, 0},
			"-OIL":        {0, 0},
		},
	}
	lookup := staticLookup(map[string][]float64{
		"OIL|2020-01-01": {10, 10},
		"OIL|2020-02-01": {20, 20},
		"OIL|2019-12-01": {5, 5},
	})

	report, err := Aggregate(result, lookup, Params{
		PerturbationFactor: 0.05,
		PathCount:          paths,
		ObservationDate:    time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(report.Periods) != 3 {
		t.Fatalf("len(Periods) = %d, want 3", len(report.Periods))
	}

	// Spot first, then January, then February.
	if report.Periods[0].Date != nil {
		t.Fatalf("Periods[0] is dated, want spot first")
	}
	jan, feb := report.Periods[1], report.Periods[2]

	// Cumulative position after Feb: per-path {-2,-6} + {-2,-2} = {-4,-8},
	// mean -6, population std 2, stderr 2/sqrt(2).
	if !approxEqual(feb.CumPosMean, -6, 1e-12) {
		t.Errorf("feb.CumPosMean = %v, want -6", feb.CumPosMean)
	}
	if !approxEqual(feb.CumPosStderr, 2/math.Sqrt2, 1e-12) {
		t.Errorf("feb.CumPosStderr = %v, want %v", feb.CumPosStderr, 2/math.Sqrt2)
	}
	// Cumulative cash after Feb: {20,60} + {40,40} = {60,100}, mean 80.
	if !approxEqual(feb.CumCashMean, 80, 1e-12) {
		t.Errorf("feb.CumCashMean = %v, want 80", feb.CumCashMean)
	}
	// January cumulative equals its own bucket since the chain starts there
	// (the spot bucket contributed nothing).
	if !approxEqual(jan.CumPosMean, -4, 1e-12) {
		t.Errorf("jan.CumPosMean = %v, want -4", jan.CumPosMean)
	}
	if feb.TotalUnitsStderr != feb.CumPosStderr {
		t.Errorf("TotalUnitsStderr = %v, CumPosStderr = %v, want equal", feb.TotalUnitsStderr, feb.CumPosStderr)
	}
}

// TestAggregate_SampledFairValue verifies the mean/stderr of a per-path fair
// value distribution: samples {1,2,3,4} have population std sqrt(1.25).
func TestAggregate_SampledFairValue(t *testing.T) {
	result := engine.Result{
		ID:              "r4",
		FairValue:       engine.SampledFairValue([]float64{1, 2, 3, 4}),
		PerturbedValues: map[string][]float64{},
	}

	report, err := Aggregate(result, staticLookup(nil), Params{
		PerturbationFactor: 0.01,
		PathCount:          4,
		ObservationDate:    time.Now(),
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !approxEqual(report.FairValueMean, 2.5, 1e-12) {
		t.Errorf("FairValueMean = %v, want 2.5", report.FairValueMean)
	}
	if want := math.Sqrt(1.25) / 2; !approxEqual(report.FairValueStderr, want, 1e-12) {
		t.Errorf("FairValueStderr = %v, want %v", report.FairValueStderr, want)
	}
}

func TestAggregate_Errors(t *testing.T) {
	const paths = 2
	base := func() engine.Result {
		return engine.Result{
			ID:        "r",
			FairValue: engine.ScalarFairValue(0),
			PerturbedValues: map[string][]float64{
				"GAS-2020-1":  {1, 1},
				"-GAS-2020-1": {-1, -1},
			},
		}
	}
	goodLookup := staticLookup(map[string][]float64{"GAS|2020-01-01": {10, 10}})
	params := Params{PerturbationFactor: 0.01, PathCount: paths, ObservationDate: time.Now()}

	t.Run("missing price", func(t *testing.T) {
		_, err := Aggregate(base(), staticLookup(nil), params)
		var missing apperrors.MissingPriceError
		if !errors.As(err, &missing) {
			t.Fatalf("error = %v, want MissingPriceError", err)
		}
		if missing.Commodity != "GAS" {
			t.Errorf("Commodity = %q, want GAS", missing.Commodity)
		}
		if want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC); !missing.Date.Equal(want) {
			t.Errorf("Date = %v, want %v", missing.Date, want)
		}
	})

	t.Run("missing downward perturbation", func(t *testing.T) {
		result := base()
		delete(result.PerturbedValues, "-GAS-2020-1")
		_, err := Aggregate(result, goodLookup, params)
		var v apperrors.ValidationError
		if !errors.As(err, &v) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
	})

	t.Run("zero price gives numeric error", func(t *testing.T) {
		_, err := Aggregate(base(), staticLookup(map[string][]float64{"GAS|2020-01-01": {0, 0}}), params)
		var numeric apperrors.NumericError
		if !errors.As(err, &numeric) {
			t.Fatalf("error = %v, want NumericError", err)
		}
	})

	t.Run("zero perturbation factor gives numeric error", func(t *testing.T) {
		p := params
		p.PerturbationFactor = 0
		_, err := Aggregate(base(), goodLookup, p)
		var numeric apperrors.NumericError
		if !errors.As(err, &numeric) {
			t.Fatalf("error = %v, want NumericError", err)
		}
	})

	t.Run("sample length mismatch", func(t *testing.T) {
		result := base()
		result.PerturbedValues["GAS-2020-1"] = []float64{1}
		_, err := Aggregate(result, goodLookup, params)
		var v apperrors.ValidationError
		if !errors.As(err, &v) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
	})

	t.Run("non-positive path count", func(t *testing.T) {
		p := params
		p.PathCount = 0
		_, err := Aggregate(base(), goodLookup, p)
		var v apperrors.ValidationError
		if !errors.As(err, &v) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
	})

	t.Run("malformed key", func(t *testing.T) {
		result := base()
		result.PerturbedValues["GAS-2020"] = []float64{1, 1}
		_, err := Aggregate(result, goodLookup, params)
		var v apperrors.ValidationError
		if !errors.As(err, &v) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
	})
}
