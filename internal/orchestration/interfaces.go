package orchestration

import (
	"io"
	"sync"
	"time"

	"github.com/ontiyonke/quantdsl/internal/telemetry"
)

// ProgressReporter defines the interface for displaying valuation progress.
// This interface decouples the orchestration layer from the presentation
// layer: implementations handle the visual representation (percent line,
// progress bar, nothing at all) while orchestration focuses on coordinating
// the run.
type ProgressReporter interface {
	// DisplayProgress consumes progress snapshots from the channel until it
	// is closed. It should be called in a separate goroutine.
	//
	// Parameters:
	//   - wg: A WaitGroup to signal when display is complete.
	//   - snapshots: Channel receiving telemetry snapshots.
	//   - out: The writer for progress output.
	DisplayProgress(wg *sync.WaitGroup, snapshots <-chan telemetry.Snapshot, out io.Writer)
}

// ProgressReporterFunc is a function adapter that implements ProgressReporter.
type ProgressReporterFunc func(wg *sync.WaitGroup, snapshots <-chan telemetry.Snapshot, out io.Writer)

// DisplayProgress calls the underlying function.
func (f ProgressReporterFunc) DisplayProgress(wg *sync.WaitGroup, snapshots <-chan telemetry.Snapshot, out io.Writer) {
	f(wg, snapshots, out)
}

// NullProgressReporter is a no-op implementation of ProgressReporter.
// It drains the snapshot channel without displaying anything.
// Useful for quiet mode or testing.
type NullProgressReporter struct{}

// DisplayProgress drains the channel without output.
func (NullProgressReporter) DisplayProgress(wg *sync.WaitGroup, snapshots <-chan telemetry.Snapshot, _ io.Writer) {
	defer wg.Done()
	for range snapshots {
		// Drain channel silently
	}
}

// PhaseObserver receives lifecycle callbacks for the sequential phases of a
// run (compile, calibrate, simulate, evaluate, aggregate). The CLI uses it to
// drive a spinner and timing lines; tests use it to assert ordering.
type PhaseObserver interface {
	PhaseStarted(name string)
	PhaseCompleted(name string, elapsed time.Duration)
}

// NullPhaseObserver ignores all phase callbacks.
type NullPhaseObserver struct{}

// PhaseStarted does nothing.
func (NullPhaseObserver) PhaseStarted(string) {}

// PhaseCompleted does nothing.
func (NullPhaseObserver) PhaseCompleted(string, time.Duration) {}
