package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
)

func parse(t *testing.T, args ...string) (AppConfig, error) {
	t.Helper()
	return ParseConfig("quanthedge-test", args, io.Discard)
}

func mustParse(t *testing.T, args ...string) AppConfig {
	t.Helper()
	cfg, err := parse(t, args...)
	if err != nil {
		t.Fatalf("ParseConfig(%v) error = %v", args, err)
	}
	return cfg
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg := mustParse(t, "-demo")

	if cfg.PathCount != DefaultPathCount {
		t.Errorf("PathCount = %d, want %d", cfg.PathCount, DefaultPathCount)
	}
	if cfg.PerturbationFactor != DefaultPerturbationFactor {
		t.Errorf("PerturbationFactor = %v, want %v", cfg.PerturbationFactor, DefaultPerturbationFactor)
	}
	if cfg.InterestRate != DefaultInterestRate {
		t.Errorf("InterestRate = %v, want %v", cfg.InterestRate, DefaultInterestRate)
	}
	if cfg.Periodisation != PeriodisationMonthly {
		t.Errorf("Periodisation = %q, want monthly", cfg.Periodisation)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.Title != "demo" {
		t.Errorf("Title = %q, want demo", cfg.Title)
	}
}

func TestParseConfig_Flags(t *testing.T) {
	cfg := mustParse(t,
		"-source", "contract.qh",
		"-paths", "5000",
		"-perturbation", "0.02",
		"-observation-date", "2020-06-15",
		"-periodisation", "daily",
		"-timeout", "30s",
		"-title", "winter book",
	)

	if cfg.SourceFile != "contract.qh" {
		t.Errorf("SourceFile = %q", cfg.SourceFile)
	}
	if cfg.PathCount != 5000 {
		t.Errorf("PathCount = %d, want 5000", cfg.PathCount)
	}
	if cfg.PerturbationFactor != 0.02 {
		t.Errorf("PerturbationFactor = %v, want 0.02", cfg.PerturbationFactor)
	}
	if want := time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC); !cfg.ObservationDate.Equal(want) {
		t.Errorf("ObservationDate = %v, want %v", cfg.ObservationDate, want)
	}
	if cfg.Periodisation != PeriodisationDaily {
		t.Errorf("Periodisation = %q, want daily", cfg.Periodisation)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Title != "winter book" {
		t.Errorf("Title = %q", cfg.Title)
	}
}

func TestParseConfig_TitleDefaultsToSourceFile(t *testing.T) {
	cfg := mustParse(t, "-source", "book.qh")
	if cfg.Title != "book.qh" {
		t.Errorf("Title = %q, want book.qh", cfg.Title)
	}
}

func TestParseConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no source or demo", nil},
		{"source and demo", []string{"-source", "a.qh", "-demo"}},
		{"non-positive paths", []string{"-demo", "-paths", "0"}},
		{"non-positive perturbation", []string{"-demo", "-perturbation", "-0.1"}},
		{"bad observation date", []string{"-demo", "-observation-date", "15/06/2020"}},
		{"unknown periodisation", []string{"-demo", "-periodisation", "weekly"}},
		{"quiet and verbose", []string{"-demo", "-quiet", "-verbose"}},
		{"non-positive timeout", []string{"-demo", "-timeout", "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.args...)
			if err == nil {
				t.Fatalf("ParseConfig(%v) error = nil, want ConfigError", tt.args)
			}
			var configErr apperrors.ConfigError
			if !errors.As(err, &configErr) {
				t.Errorf("error type %T, want ConfigError (%v)", err, err)
			}
		})
	}
}

func TestParseConfig_HelpFlag(t *testing.T) {
	_, err := parse(t, "-h")
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("error = %v, want flag.ErrHelp", err)
	}
}

func TestParseConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"PATHS", "777")
	t.Setenv(EnvPrefix+"PERIODISATION", "daily")
	t.Setenv(EnvPrefix+"QUIET", "yes")

	cfg := mustParse(t, "-demo")
	if cfg.PathCount != 777 {
		t.Errorf("PathCount = %d, want 777 from env", cfg.PathCount)
	}
	if cfg.Periodisation != PeriodisationDaily {
		t.Errorf("Periodisation = %q, want daily from env", cfg.Periodisation)
	}
	if !cfg.Quiet {
		t.Error("Quiet = false, want true from env")
	}
}

func TestParseConfig_FlagBeatsEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"PATHS", "777")

	cfg := mustParse(t, "-demo", "-paths", "123")
	if cfg.PathCount != 123 {
		t.Errorf("PathCount = %d, want 123: explicit flag must beat env", cfg.PathCount)
	}
}

func TestParseConfig_InvalidEnvValueIgnored(t *testing.T) {
	t.Setenv(EnvPrefix+"PATHS", "many")

	cfg := mustParse(t, "-demo")
	if cfg.PathCount != DefaultPathCount {
		t.Errorf("PathCount = %d, want default when the env value is garbage", cfg.PathCount)
	}
}

func TestParseBoolEnv(t *testing.T) {
	for val, want := range map[string]bool{
		"true": true, "1": true, "YES": true,
		"false": false, "0": false, "No": false,
	} {
		if got := parseBoolEnv(val, !want); got != want {
			t.Errorf("parseBoolEnv(%q) = %v, want %v", val, got, want)
		}
	}
	if got := parseBoolEnv("maybe", true); got != true {
		t.Error("parseBoolEnv should keep the default for unrecognized values")
	}
}

func TestLoadCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	content := "process: gbm\nparams:\n  sigma: 0.3\n  GAS: 25.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	calibration, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	if calibration.Process != "gbm" {
		t.Errorf("Process = %q, want gbm", calibration.Process)
	}
	if calibration.Params["sigma"] != 0.3 || calibration.Params["GAS"] != 25.5 {
		t.Errorf("Params = %v", calibration.Params)
	}
}

func TestLoadCalibration_Errors(t *testing.T) {
	if _, err := LoadCalibration(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadCalibration() on a missing file: error = nil")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("process: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadCalibration(path)
	var configErr apperrors.ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("error type %T, want ConfigError", err)
	}
}
