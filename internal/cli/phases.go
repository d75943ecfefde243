package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"

	"github.com/ontiyonke/quantdsl/internal/format"
	"github.com/ontiyonke/quantdsl/internal/orchestration"
)

// spinnerInterval paces the phase spinner animation.
const spinnerInterval = 100 * time.Millisecond

// PhaseSpinner implements orchestration.PhaseObserver by running a terminal
// spinner during the preparatory phases (compile, calibrate, simulate) and
// printing a timing line when each completes. The evaluate phase is excluded:
// the progress reporter owns the terminal there.
type PhaseSpinner struct {
	out io.Writer
	s   *spinner.Spinner
}

var _ orchestration.PhaseObserver = (*PhaseSpinner)(nil)

// NewPhaseSpinner creates a phase spinner writing to out.
func NewPhaseSpinner(out io.Writer) *PhaseSpinner {
	return &PhaseSpinner{out: out}
}

// PhaseStarted starts the spinner for preparatory phases.
func (p *PhaseSpinner) PhaseStarted(name string) {
	if name == "evaluate" {
		return
	}
	p.s = spinner.New(spinner.CharSets[14], spinnerInterval, spinner.WithWriter(p.out))
	p.s.Suffix = " " + name
	p.s.Start()
}

// PhaseCompleted stops the spinner and prints the phase timing.
func (p *PhaseSpinner) PhaseCompleted(name string, elapsed time.Duration) {
	if p.s != nil {
		p.s.Stop()
		p.s = nil
	}
	if name == "evaluate" {
		return
	}
	fmt.Fprintf(p.out, "%s in %s\n", name, format.FormatExecutionDuration(elapsed))
}
