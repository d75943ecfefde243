package hedge

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// mean is the sample mean over the path dimension.
func mean(xs []float64) float64 { return stat.Mean(xs, nil) }

// popStdDev is the population (n-denominator) standard deviation, matching
// the dispersion the simulation engine reports for raw prices.
func popStdDev(xs []float64) float64 { return stat.PopStdDev(xs, nil) }

// stderrOf is the standard error of the sample mean: popStdDev/sqrt(n).
func stderrOf(xs []float64, pathCount int) float64 {
	return popStdDev(xs) / math.Sqrt(float64(pathCount))
}

// finite reports whether every element of xs is a finite number.
func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
