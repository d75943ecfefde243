// Package config parses command-line flags and environment variables into
// the application configuration. Priority: CLI flags > environment variables
// (QUANTHEDGE_ prefix) > defaults.
package config

import (
	"flag"
	"io"
	"time"

	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
)

// EnvPrefix is prepended to every environment variable read by this package.
const EnvPrefix = "QUANTHEDGE_"

// Default values for flags that are rarely overridden.
const (
	DefaultPathCount          = 20000
	DefaultPerturbationFactor = 0.01
	DefaultInterestRate       = 2.5
	DefaultProcessName        = "gbm"
	DefaultTimeout            = 10 * time.Minute
	DefaultPollTimeout        = 2 * time.Second
	DefaultSnapshotInterval   = 200 * time.Millisecond
	DefaultDateLayout         = "2006-01-02"
)

// Periodisation selects the reporting granularity of dated hedge buckets.
type Periodisation string

// Supported periodisation tags. Anything else is a fatal configuration error,
// surfaced at parse time rather than after a long valuation run.
const (
	PeriodisationMonthly Periodisation = "monthly"
	PeriodisationDaily   Periodisation = "daily"
)

// ParsePeriodisation validates a periodisation tag.
func ParsePeriodisation(s string) (Periodisation, error) {
	switch Periodisation(s) {
	case PeriodisationMonthly, PeriodisationDaily:
		return Periodisation(s), nil
	default:
		return "", apperrors.NewConfigError("unknown periodisation %q (want %q or %q)", s, PeriodisationMonthly, PeriodisationDaily)
	}
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	// SourceFile is the path of the contract source to value. Empty when
	// Demo is set.
	SourceFile string
	// Demo runs a built-in sample contract instead of reading SourceFile.
	Demo bool
	// Title labels the run in output and logs.
	Title string

	ObservationDate    time.Time
	InterestRate       float64
	PathCount          int
	PerturbationFactor float64
	Periodisation      Periodisation

	// ProcessName and CalibrationFile select the market price process; the
	// YAML file may override ProcessName and supplies the process parameters.
	ProcessName     string
	CalibrationFile string

	// Timeout is the total elapsed budget for the whole run; PollTimeout
	// bounds each blocking interval of the completion wait.
	Timeout          time.Duration
	PollTimeout      time.Duration
	SnapshotInterval time.Duration

	Quiet   bool
	Verbose bool
	// Bar renders progress as a progress bar instead of the classic
	// percent/rate/eta line.
	Bar bool

	// Seed fixes the in-memory engine's random source; 0 means time-seeded.
	Seed uint64
	// UnitDelay paces the in-memory engine for demonstration runs.
	UnitDelay time.Duration
}

// ParseConfig parses command-line arguments and applies environment variable
// overrides, then validates the result.
//
// Parameters:
//   - programName: The name used in usage output.
//   - args: The raw command-line arguments (without the program name).
//   - errWriter: Destination for flag parse errors and usage text.
//
// Returns:
//   - AppConfig: The validated configuration.
//   - error: A ConfigError (or flag.ErrHelp) when parsing or validation fails.
func ParseConfig(programName string, args []string, errWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)

	cfg := AppConfig{}
	var obsDate, periodisation string

	fs.StringVar(&cfg.SourceFile, "source", "", "path of the contract source file")
	fs.BoolVar(&cfg.Demo, "demo", false, "value a built-in sample contract")
	fs.StringVar(&cfg.Title, "title", "", "title of the run (defaults to the source file name)")
	fs.StringVar(&obsDate, "observation-date", time.Now().UTC().Format(DefaultDateLayout), "observation date (YYYY-MM-DD)")
	fs.Float64Var(&cfg.InterestRate, "interest-rate", DefaultInterestRate, "continuously compounded interest rate in percent")
	fs.IntVar(&cfg.PathCount, "paths", DefaultPathCount, "number of Monte-Carlo paths")
	fs.Float64Var(&cfg.PerturbationFactor, "perturbation", DefaultPerturbationFactor, "relative price perturbation for finite differencing")
	fs.StringVar(&periodisation, "periodisation", string(PeriodisationMonthly), "hedge bucket granularity: monthly or daily")
	fs.StringVar(&cfg.ProcessName, "process", DefaultProcessName, "market price process name")
	fs.StringVar(&cfg.CalibrationFile, "calibration", "", "path of a YAML market calibration file")
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "total elapsed budget for the valuation")
	fs.DurationVar(&cfg.PollTimeout, "poll-timeout", DefaultPollTimeout, "re-check interval while waiting for completion")
	fs.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", DefaultSnapshotInterval, "progress refresh interval")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "suppress progress and summary output")
	fs.BoolVar(&cfg.Quiet, "q", false, "suppress progress and summary output (shorthand)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "verbose output with system statistics")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output (shorthand)")
	fs.BoolVar(&cfg.Bar, "bar", false, "render progress as a progress bar")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "random seed for the in-memory engine (0 = time-seeded)")
	fs.DurationVar(&cfg.UnitDelay, "unit-delay", 0, "artificial pause per unit of work, for demonstrations")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	applyEnvOverrides(&cfg, fs, &obsDate, &periodisation)

	parsed, err := time.Parse(DefaultDateLayout, obsDate)
	if err != nil {
		return AppConfig{}, apperrors.NewConfigError("invalid observation date %q: want YYYY-MM-DD", obsDate)
	}
	cfg.ObservationDate = parsed

	cfg.Periodisation, err = ParsePeriodisation(periodisation)
	if err != nil {
		return AppConfig{}, err
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	if cfg.Title == "" {
		if cfg.Demo {
			cfg.Title = "demo"
		} else {
			cfg.Title = cfg.SourceFile
		}
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.SourceFile == "" && !c.Demo {
		return apperrors.NewConfigError("either -source or -demo is required")
	}
	if c.SourceFile != "" && c.Demo {
		return apperrors.NewConfigError("-source and -demo are mutually exclusive")
	}
	if c.PathCount <= 0 {
		return apperrors.NewConfigError("-paths must be positive, got %d", c.PathCount)
	}
	if c.PerturbationFactor <= 0 {
		return apperrors.NewConfigError("-perturbation must be positive, got %g", c.PerturbationFactor)
	}
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("-timeout must be positive, got %s", c.Timeout)
	}
	if c.PollTimeout <= 0 {
		return apperrors.NewConfigError("-poll-timeout must be positive, got %s", c.PollTimeout)
	}
	if c.SnapshotInterval <= 0 {
		return apperrors.NewConfigError("-snapshot-interval must be positive, got %s", c.SnapshotInterval)
	}
	if c.Quiet && c.Verbose {
		return apperrors.NewConfigError("-quiet and -verbose are mutually exclusive")
	}
	return nil
}
