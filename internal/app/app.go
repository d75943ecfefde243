// Package app wires configuration, the valuation engine, orchestration and
// presentation into the quanthedge command.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ontiyonke/quantdsl/internal/cli"
	"github.com/ontiyonke/quantdsl/internal/config"
	"github.com/ontiyonke/quantdsl/internal/engine"
	"github.com/ontiyonke/quantdsl/internal/engine/memory"
	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
	"github.com/ontiyonke/quantdsl/internal/format"
	"github.com/ontiyonke/quantdsl/internal/logging"
	"github.com/ontiyonke/quantdsl/internal/metrics"
	"github.com/ontiyonke/quantdsl/internal/orchestration"
)

// Application represents the quanthedge application instance.
type Application struct {
	Config    config.AppConfig
	Engine    engine.App
	ErrWriter io.Writer
	Log       logging.Logger
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithEngine sets a custom valuation engine for the application.
// Without it, Run constructs the in-memory engine.
func WithEngine(e engine.App) AppOption {
	return func(a *Application) { a.Engine = e }
}

// WithLogger sets a custom logger.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Log = l }
}

// New creates a new Application instance by parsing command-line arguments.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter}
	for _, opt := range opts {
		opt(app)
	}

	programName := "quanthedge"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	return app, nil
}

// Run executes the valuation and returns the process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	level := zerolog.InfoLevel
	switch {
	case a.Config.Quiet:
		level = zerolog.ErrorLevel
	case a.Config.Verbose:
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if a.Log == nil {
		a.Log = logging.New(a.ErrWriter, level)
	}

	source, err := a.loadSource()
	if err != nil {
		return a.fail(err)
	}

	processName := a.Config.ProcessName
	params := map[string]float64{}
	if a.Config.CalibrationFile != "" {
		calibration, err := config.LoadCalibration(a.Config.CalibrationFile)
		if err != nil {
			return a.fail(err)
		}
		params = calibration.Params
		if calibration.Process != "" {
			processName = calibration.Process
		}
	}

	if a.Engine == nil {
		engineOpts := []memory.Option{}
		if a.Config.Seed != 0 {
			engineOpts = append(engineOpts, memory.WithSeed(a.Config.Seed))
		}
		if a.Config.UnitDelay > 0 {
			engineOpts = append(engineOpts, memory.WithUnitDelay(a.Config.UnitDelay))
		}
		a.Engine = memory.New(engineOpts...)
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, a.Config.Timeout)
	defer cancelTimeout()
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if !a.Config.Quiet {
		cli.PrintRunConfig(out, a.Config.Title, a.Config)
	}

	runner := orchestration.Runner{
		App:      a.Engine,
		Reporter: a.progressReporter(),
		Phases:   a.phaseObserver(out),
		Metrics:  metrics.NewSet(prometheus.NewRegistry()),
		Log:      a.Log,
	}
	outcome, err := runner.Run(ctx, orchestration.Config{
		Source:             source,
		ProcessName:        processName,
		CalibrationParams:  params,
		ObservationDate:    a.Config.ObservationDate,
		InterestRate:       a.Config.InterestRate,
		PathCount:          a.Config.PathCount,
		PerturbationFactor: a.Config.PerturbationFactor,
		PollTimeout:        a.Config.PollTimeout,
		SnapshotInterval:   a.Config.SnapshotInterval,
	}, out)
	if err != nil {
		return a.fail(err)
	}

	if a.Config.Quiet {
		fmt.Fprintf(out, "%.6f ± %.6f\n", outcome.Report.FairValueMean, outcome.Report.FairValueStderr)
		return apperrors.ExitSuccess
	}

	cli.PrintReport(out, outcome.Report, a.Config.Periodisation)
	fmt.Fprintf(out, "\nResults in %s\n", format.FormatExecutionDuration(outcome.CalcDuration))
	if a.Config.Verbose {
		snap := metrics.NewMemoryCollector().Snapshot()
		fmt.Fprintf(out, "heap %d MiB, %d GC cycles\n", snap.HeapAlloc/(1<<20), snap.NumGC)
	}
	return apperrors.ExitSuccess
}

// loadSource returns the contract source: the built-in demo contract or the
// content of the configured source file.
func (a *Application) loadSource() (string, error) {
	if a.Config.Demo {
		return demoSource(a.Config.ObservationDate), nil
	}
	raw, err := os.ReadFile(a.Config.SourceFile)
	if err != nil {
		return "", apperrors.WrapError(err, "reading contract source %q", a.Config.SourceFile)
	}
	return string(raw), nil
}

// demoSource builds a small forward purchase programme relative to the
// observation date: a spot position plus three monthly deliveries.
func demoSource(observation time.Time) string {
	source := "# demo: gas purchase programme\nGAS 10\n"
	for i := 1; i <= 3; i++ {
		date := observation.AddDate(0, i, 0)
		source += fmt.Sprintf("GAS %d-%d 15\n", date.Year(), int(date.Month()))
	}
	return source
}

func (a *Application) progressReporter() orchestration.ProgressReporter {
	switch {
	case a.Config.Quiet:
		return orchestration.NullProgressReporter{}
	case a.Config.Bar:
		return cli.BarProgressReporter{}
	default:
		return cli.CLIProgressReporter{Verbose: a.Config.Verbose}
	}
}

func (a *Application) phaseObserver(out io.Writer) orchestration.PhaseObserver {
	if a.Config.Quiet {
		return orchestration.NullPhaseObserver{}
	}
	return cli.NewPhaseSpinner(out)
}

// fail logs the error and maps it to a process exit code.
func (a *Application) fail(err error) int {
	a.Log.Error("run failed", logging.Err(err))
	fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)

	var numeric apperrors.NumericError
	var configErr apperrors.ConfigError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		return apperrors.ExitErrorCanceled
	case errors.As(err, &numeric):
		return apperrors.ExitErrorNumeric
	case errors.As(err, &configErr):
		return apperrors.ExitErrorConfig
	default:
		return apperrors.ExitErrorGeneric
	}
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
