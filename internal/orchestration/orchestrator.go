// Package orchestration coordinates one complete valuation run against the
// engine: compile the contract, register the market calibration, simulate
// paths, start the asynchronous evaluation, relay progress telemetry, wait
// for completion and aggregate the hedging report.
package orchestration

import (
	"context"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ontiyonke/quantdsl/internal/await"
	"github.com/ontiyonke/quantdsl/internal/engine"
	"github.com/ontiyonke/quantdsl/internal/hedge"
	"github.com/ontiyonke/quantdsl/internal/logging"
	"github.com/ontiyonke/quantdsl/internal/metrics"
	"github.com/ontiyonke/quantdsl/internal/telemetry"
)

// SnapshotBuffer sizes the snapshot channel. A buffer keeps the producer
// ticker from blocking when the display is slow to consume updates.
const SnapshotBuffer = 8

const tracerName = "github.com/ontiyonke/quantdsl/internal/orchestration"

// Config carries the per-run valuation parameters.
type Config struct {
	Source             string
	ProcessName        string
	CalibrationParams  map[string]float64
	ObservationDate    time.Time
	InterestRate       float64
	PathCount          int
	PerturbationFactor float64

	// PollTimeout bounds each blocking interval of the completion wait;
	// SnapshotInterval paces progress snapshots. Zero values use the
	// await and telemetry defaults.
	PollTimeout      time.Duration
	SnapshotInterval time.Duration
}

// Outcome is the result of a completed run.
type Outcome struct {
	Report          hedge.Report
	TotalCost       int
	CompileDuration time.Duration
	CalcDuration    time.Duration
}

// Runner executes valuation runs. Zero-value collaborators are replaced with
// no-op implementations, so only App is mandatory.
type Runner struct {
	App      engine.App
	Reporter ProgressReporter
	Phases   PhaseObserver
	Metrics  *metrics.Set
	Log      logging.Logger
}

func (r *Runner) normalize() {
	if r.Reporter == nil {
		r.Reporter = NullProgressReporter{}
	}
	if r.Phases == nil {
		r.Phases = NullPhaseObserver{}
	}
	if r.Log == nil {
		r.Log = logging.NewNop()
	}
}

// Run executes one valuation end to end. ctx carries the total elapsed
// budget: when it expires before the result lands in the store, the run fails
// with a context error wrapped as "valuation did not complete".
func (r *Runner) Run(ctx context.Context, cfg Config, out io.Writer) (Outcome, error) {
	r.normalize()
	interval := cfg.SnapshotInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "valuation-run")
	defer span.End()

	outcome := Outcome{}

	spec, compileDuration, err := phase1(ctx, tracer, r.Phases, "compile", func() (engine.ContractSpecification, error) {
		return r.App.Compile(cfg.Source)
	})
	if err != nil {
		return outcome, err
	}
	outcome.CompileDuration = compileDuration
	r.Log.Info("contract compiled",
		logging.String("spec", spec.ID),
		logging.Int("legs", len(spec.Legs)),
		logging.Dur("elapsed", compileDuration))

	calibration, _, err := phase1(ctx, tracer, r.Phases, "calibrate", func() (engine.MarketCalibration, error) {
		return r.App.RegisterMarketCalibration(cfg.ProcessName, cfg.CalibrationParams)
	})
	if err != nil {
		return outcome, err
	}

	sim, _, err := phase1(ctx, tracer, r.Phases, "simulate", func() (engine.MarketSimulation, error) {
		return r.App.Simulate(spec, calibration, engine.SimulationOptions{
			PathCount:          cfg.PathCount,
			ObservationDate:    cfg.ObservationDate,
			InterestRate:       cfg.InterestRate,
			PerturbationFactor: cfg.PerturbationFactor,
		})
	})
	if err != nil {
		return outcome, err
	}

	costs, err := r.App.CalcCallCosts(spec.ID)
	if err != nil {
		return outcome, err
	}
	totalCost := 0
	for _, cost := range costs {
		totalCost += cost
	}
	outcome.TotalCost = totalCost

	tracker := telemetry.New(totalCost)
	telemetrySub := r.App.Notifications().Subscribe(func(event any) {
		if _, ok := event.(engine.UnitOfWorkCompleted); ok {
			tracker.OnUnitCompleted()
			r.Metrics.UnitCompleted()
		}
	})
	defer telemetrySub.Unsubscribe()

	snapshots := make(chan telemetry.Snapshot, SnapshotBuffer)
	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go r.Reporter.DisplayProgress(&displayWg, snapshots, out)

	calcStart := time.Now()
	result, err := r.evaluateAndWait(ctx, tracer, spec, sim, tracker, snapshots, interval, cfg.PollTimeout)
	// The display goroutine owns the terminal line; it must wind down before
	// anything else writes to out, on success and failure alike.
	close(snapshots)
	displayWg.Wait()
	if err != nil {
		return outcome, err
	}
	outcome.CalcDuration = time.Since(calcStart)
	r.Metrics.ObserveValuationDuration(outcome.CalcDuration)
	r.Log.Info("valuation complete",
		logging.String("result", result.ID),
		logging.Dur("elapsed", outcome.CalcDuration))

	report, _, err := phase1(ctx, tracer, r.Phases, "aggregate", func() (hedge.Report, error) {
		return hedge.Aggregate(result, r.priceLookup(sim), hedge.Params{
			PerturbationFactor: sim.PerturbationFactor,
			PathCount:          sim.PathCount,
			ObservationDate:    sim.ObservationDate,
		})
	})
	if err != nil {
		return outcome, err
	}
	outcome.Report = report
	return outcome, nil
}

// evaluateAndWait starts the asynchronous evaluation and blocks until its
// result is present in the store, relaying telemetry snapshots on a ticker
// while it waits. A final snapshot is emitted after completion so displays
// settle at 100%.
func (r *Runner) evaluateAndWait(ctx context.Context, tracer trace.Tracer, spec engine.ContractSpecification, sim engine.MarketSimulation, tracker *telemetry.Tracker, snapshots chan<- telemetry.Snapshot, interval, pollTimeout time.Duration) (engine.Result, error) {
	ctx, span := tracer.Start(ctx, "evaluate")
	defer span.End()

	valuation, err := r.App.Evaluate(spec, sim)
	if err != nil {
		return engine.Result{}, err
	}
	targetID := engine.MakeResultID(valuation.ID, valuation.ContractSpecificationID)
	r.Log.Debug("evaluation started",
		logging.String("valuation", valuation.ID),
		logging.String("target", targetID))

	var result engine.Result
	waitDone := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(waitDone)
		res, err := await.Wait(gctx, targetID, r.App.Results(), r.App.Notifications(), pollTimeout)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-waitDone:
				return nil
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				snap := tracker.Snapshot()
				r.Metrics.ObserveSnapshot(snap)
				select {
				case snapshots <- snap:
				default:
					// Display is behind; drop rather than stall telemetry.
				}
			}
		}
	})
	if err := g.Wait(); err != nil {
		return engine.Result{}, err
	}

	final := tracker.Snapshot()
	r.Metrics.ObserveSnapshot(final)
	snapshots <- final
	return result, nil
}

func (r *Runner) priceLookup(sim engine.MarketSimulation) hedge.PriceLookup {
	return func(commodity string, date time.Time) ([]float64, bool) {
		price, ok := r.App.Prices().Get(sim.ID, commodity, date, date)
		if !ok {
			return nil, false
		}
		return price.Values, true
	}
}

// phase1 wraps a single-result phase with observer callbacks and a trace span.
func phase1[T any](ctx context.Context, tracer trace.Tracer, obs PhaseObserver, name string, fn func() (T, error)) (T, time.Duration, error) {
	_, span := tracer.Start(ctx, name)
	defer span.End()

	obs.PhaseStarted(name)
	start := time.Now()
	value, err := fn()
	elapsed := time.Since(start)
	obs.PhaseCompleted(name, elapsed)
	return value, elapsed, err
}
