package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/ontiyonke/quantdsl/internal/format"
	"github.com/ontiyonke/quantdsl/internal/orchestration"
	"github.com/ontiyonke/quantdsl/internal/sysmon"
	"github.com/ontiyonke/quantdsl/internal/telemetry"
)

// CLIProgressReporter implements orchestration.ProgressReporter with the
// classic single-line display:
//
//	42.00% complete (42/100) 1.73/s eta 33s
//
// redrawn in place with a carriage return. With Verbose set, a system-usage
// suffix is appended to each redraw.
type CLIProgressReporter struct {
	Verbose bool
}

// Verify that CLIProgressReporter implements orchestration.ProgressReporter.
var _ orchestration.ProgressReporter = CLIProgressReporter{}

// DisplayProgress consumes snapshots until the channel closes, then
// terminates the progress line.
func (r CLIProgressReporter) DisplayProgress(wg *sync.WaitGroup, snapshots <-chan telemetry.Snapshot, out io.Writer) {
	defer wg.Done()
	displayed := false
	for snap := range snapshots {
		line := fmt.Sprintf("\r%.2f%% complete (%d/%d) %.2f/s eta %s",
			snap.Percent, snap.Completed, snap.TotalCost, snap.Rate, format.FormatETA(snap.ETA))
		if r.Verbose {
			line += " [" + sysmon.Sample().String() + "]"
		}
		fmt.Fprint(out, line)
		displayed = true
	}
	if displayed {
		fmt.Fprintln(out)
	}
}

// BarProgressReporter implements orchestration.ProgressReporter with a
// progress bar. The bar is created lazily from the first snapshot, which
// carries the total-cost denominator.
type BarProgressReporter struct{}

var _ orchestration.ProgressReporter = BarProgressReporter{}

// DisplayProgress renders snapshots onto a progress bar until the channel
// closes.
func (BarProgressReporter) DisplayProgress(wg *sync.WaitGroup, snapshots <-chan telemetry.Snapshot, out io.Writer) {
	defer wg.Done()
	var bar *progressbar.ProgressBar
	for snap := range snapshots {
		if snap.TotalCost == 0 {
			continue
		}
		if bar == nil {
			bar = progressbar.NewOptions(snap.TotalCost,
				progressbar.OptionSetWriter(out),
				progressbar.OptionSetDescription("valuing"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
			)
		}
		_ = bar.Set(snap.Completed)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(out)
	}
}
