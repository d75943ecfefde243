// Package hedge converts the perturbed sample vectors of a completed
// valuation into per-period hedging statistics by central finite differencing.
// It is pure: one synchronous pass over the perturbation keys, no state, no
// I/O beyond the price-lookup callback.
package hedge

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/ontiyonke/quantdsl/internal/engine"
	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
)

// PriceLookup resolves the simulated per-path price vector of a commodity on
// a date. ok=false means no price was simulated for that date.
type PriceLookup func(commodity string, date time.Time) ([]float64, bool)

// Params carries the aggregation inputs that come from the market simulation.
type Params struct {
	// PerturbationFactor is the relative shift ε applied to each perturbed
	// run; deltas are estimated as (V(+ε)-V(-ε)) / (2ε·S).
	PerturbationFactor float64
	// PathCount is the number of Monte-Carlo paths, the statistical
	// population size for every mean and standard error.
	PathCount int
	// ObservationDate prices the spot bucket.
	ObservationDate time.Time
}

// Period holds the hedging statistics of one bucket. All stderr fields are
// population std / sqrt(path count) except PriceStd, which is the unscaled
// cross-path dispersion of the price itself, not a mean estimator's error.
type Period struct {
	Commodity string
	// Date is nil for the spot bucket.
	Date *time.Time

	HedgeUnitsMean   float64
	HedgeUnitsStderr float64
	PriceMean        float64
	PriceStd         float64
	CashInMean       float64
	CashInStderr     float64

	// Cumulative position and cash across the chronological chain, computed
	// on the per-path accumulator vectors so cross-bucket path correlation
	// is preserved in the standard errors. For the spot bucket these equal
	// the bucket's own statistics.
	CumPosMean    float64
	CumPosStderr  float64
	CumCashMean   float64
	CumCashStderr float64

	// TotalUnitsStderr is the standard error of the running position
	// accumulator at this bucket, reported separately from the per-bucket
	// hedge stderr. Zero for the spot bucket.
	TotalUnitsStderr float64
}

// Report is the aggregation output: the overall fair-value statistic and the
// ordered periods (spot bucket first if present, then dated buckets in
// chronological order).
type Report struct {
	FairValueMean   float64
	FairValueStderr float64
	Periods         []Period
}

// Aggregate computes the hedging report for a completed valuation.
//
// Every non-negated perturbation key in the result is processed. Spot keys
// (bare commodity names) form standalone buckets priced at the observation
// date and excluded from the cumulative chain. Dated keys are processed in
// chronological order, accumulating per-path hedge-unit and cash vectors.
// A missing simulated price aborts with a MissingPriceError; a non-finite
// delta (zero perturbation factor or zero price sample) aborts with a
// NumericError.
func Aggregate(result engine.Result, lookup PriceLookup, p Params) (Report, error) {
	if p.PathCount <= 0 {
		return Report{}, apperrors.ValidationError{Field: "path count", Message: "must be positive"}
	}

	report := Report{}
	if scalar, ok := result.FairValue.Scalar(); ok {
		report.FairValueMean = scalar
	} else {
		samples, _ := result.FairValue.Samples()
		report.FairValueMean = mean(samples)
		report.FairValueStderr = stderrOf(samples, p.PathCount)
	}

	keys := make([]Key, 0, len(result.PerturbedValues))
	for raw := range result.PerturbedValues {
		if IsNegated(raw) {
			continue
		}
		key, err := ParseKey(raw)
		if err != nil {
			return Report{}, err
		}
		keys = append(keys, key)
	}
	sortKeys(keys)

	totalUnits := make([]float64, p.PathCount)
	totalCash := make([]float64, p.PathCount)

	for _, key := range keys {
		up := result.PerturbedValues[key.Raw]
		down, ok := result.PerturbedValues[Negated(key.Raw)]
		if !ok {
			return Report{}, apperrors.ValidationError{Field: "perturbed values", Message: "missing downward perturbation for " + key.Raw}
		}
		if len(up) != p.PathCount || len(down) != p.PathCount {
			return Report{}, apperrors.ValidationError{Field: "perturbed values", Message: "sample length mismatch for " + key.Raw}
		}

		priceDate := p.ObservationDate
		if date, dated := key.Date(); dated {
			priceDate = date
		}
		price, ok := lookup(key.Commodity, priceDate)
		if !ok {
			return Report{}, apperrors.MissingPriceError{Commodity: key.Commodity, Date: priceDate}
		}
		if len(price) != p.PathCount {
			return Report{}, apperrors.ValidationError{Field: "simulated price", Message: "sample length mismatch for " + key.Commodity}
		}

		hedgeUnits, cashIn, err := bucketVectors(up, down, price, p.PerturbationFactor, key.Raw)
		if err != nil {
			return Report{}, err
		}

		period := Period{
			Commodity:        key.Commodity,
			HedgeUnitsMean:   mean(hedgeUnits),
			HedgeUnitsStderr: stderrOf(hedgeUnits, p.PathCount),
			PriceMean:        mean(price),
			PriceStd:         popStdDev(price),
			CashInMean:       mean(cashIn),
			CashInStderr:     stderrOf(cashIn, p.PathCount),
		}

		if date, dated := key.Date(); dated {
			period.Date = &date
			floats.Add(totalUnits, hedgeUnits)
			floats.Add(totalCash, cashIn)
			period.CumPosMean = mean(totalUnits)
			period.CumPosStderr = stderrOf(totalUnits, p.PathCount)
			period.CumCashMean = mean(totalCash)
			period.CumCashStderr = stderrOf(totalCash, p.PathCount)
			period.TotalUnitsStderr = stderrOf(totalUnits, p.PathCount)
		} else {
			// Spot bucket: a single-bucket series, so the cumulative fields
			// are its own statistics and the chain accumulators are untouched.
			period.CumPosMean = period.HedgeUnitsMean
			period.CumPosStderr = period.HedgeUnitsStderr
			period.CumCashMean = period.CashInMean
			period.CumCashStderr = period.CashInStderr
		}

		report.Periods = append(report.Periods, period)
	}

	return report, nil
}

// bucketVectors computes the per-path hedge-unit and cash-in vectors of one
// bucket:
//
//	delta      = (V(+ε) - V(-ε)) / (2ε·S)   elementwise
//	hedgeUnits = -delta
//	cashIn     = -hedgeUnits · S
//
// A non-finite delta is surfaced as a NumericError, never masked.
func bucketVectors(up, down, price []float64, factor float64, key string) (hedgeUnits, cashIn []float64, err error) {
	dy := make([]float64, len(up))
	copy(dy, up)
	floats.Sub(dy, down)

	dx := make([]float64, len(price))
	copy(dx, price)
	floats.Scale(2*factor, dx)

	hedgeUnits = dy
	floats.Div(hedgeUnits, dx)
	floats.Scale(-1, hedgeUnits)
	if !finite(hedgeUnits) {
		return nil, nil, apperrors.NumericError{Quantity: "contract delta", Key: key}
	}

	cashIn = make([]float64, len(price))
	copy(cashIn, hedgeUnits)
	floats.Mul(cashIn, price)
	floats.Scale(-1, cashIn)
	return hedgeUnits, cashIn, nil
}
