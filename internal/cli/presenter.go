package cli

import (
	"fmt"
	"io"

	"github.com/ontiyonke/quantdsl/internal/config"
	"github.com/ontiyonke/quantdsl/internal/hedge"
)

// Confidence half-width multiplier: reported intervals are ±3 standard
// errors.
const stderrMultiplier = 3

// PrintRunConfig summarizes the run parameters before the valuation starts.
func PrintRunConfig(out io.Writer, title string, cfg config.AppConfig) {
	fmt.Fprintf(out, "Valuing %s\n", title)
	fmt.Fprintf(out, "paths: %d  perturbation: %g  interest: %g%%  observation: %s\n",
		cfg.PathCount, cfg.PerturbationFactor, cfg.InterestRate,
		cfg.ObservationDate.Format(config.DefaultDateLayout))
}

// PrintReport renders the hedging report: one block per period, the net
// position and cash of the cumulative chain, and the overall fair value.
func PrintReport(out io.Writer, report hedge.Report, periodisation config.Periodisation) {
	fmt.Fprintln(out)

	var lastDated *hedge.Period
	for i := range report.Periods {
		p := &report.Periods[i]
		fmt.Fprintln(out, periodLabel(p, periodisation))
		fmt.Fprintf(out, "Price: %.2f\n", p.PriceMean)
		fmt.Fprintf(out, "Hedge: %.2f ± %.2f units of %s\n",
			p.HedgeUnitsMean, stderrMultiplier*p.HedgeUnitsStderr, p.Commodity)
		fmt.Fprintf(out, "Cash in: %.2f ± %.2f\n", p.CashInMean, stderrMultiplier*p.CashInStderr)
		fmt.Fprintf(out, "Cum posn: %.2f ± %.2f\n", p.CumPosMean, stderrMultiplier*p.CumPosStderr)
		fmt.Fprintln(out)
		if p.Date != nil {
			lastDated = p
		}
	}

	if lastDated != nil {
		fmt.Fprintf(out, "Net cash in: %.2f ± %.2f\n", lastDated.CumCashMean, stderrMultiplier*lastDated.CumCashStderr)
		fmt.Fprintf(out, "Net position: %.2f ± %.2f\n", lastDated.CumPosMean, stderrMultiplier*lastDated.CumPosStderr)
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Fair value: %.2f ± %.2f\n", report.FairValueMean, stderrMultiplier*report.FairValueStderr)
}

// periodLabel names a period block: the bare commodity for the spot bucket,
// or the commodity plus the bucket date at the configured granularity.
func periodLabel(p *hedge.Period, periodisation config.Periodisation) string {
	if p.Date == nil {
		return p.Commodity
	}
	layout := "2006-01"
	if periodisation == config.PeriodisationDaily {
		layout = "2006-01-02"
	}
	return fmt.Sprintf("%s %s", p.Commodity, p.Date.Format(layout))
}
