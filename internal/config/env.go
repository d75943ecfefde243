// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be
// used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false
// (case-insensitive). Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the QUANTHEDGE_ prefix) to the CLI flag
// name(s) it corresponds to and a function that applies the env value.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*overrideTarget, string)
}

// overrideTarget bundles the config plus the raw string flags that are parsed
// after override application.
type overrideTarget struct {
	cfg           *AppConfig
	obsDate       *string
	periodisation *string
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	// Numeric overrides
	{"PATHS", []string{"paths"}, func(t *overrideTarget, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			t.cfg.PathCount = parsed
		}
	}},
	{"PERTURBATION", []string{"perturbation"}, func(t *overrideTarget, v string) {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			t.cfg.PerturbationFactor = parsed
		}
	}},
	{"INTEREST_RATE", []string{"interest-rate"}, func(t *overrideTarget, v string) {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			t.cfg.InterestRate = parsed
		}
	}},
	{"SEED", []string{"seed"}, func(t *overrideTarget, v string) {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			t.cfg.Seed = parsed
		}
	}},

	// Duration overrides
	{"TIMEOUT", []string{"timeout"}, func(t *overrideTarget, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			t.cfg.Timeout = parsed
		}
	}},
	{"POLL_TIMEOUT", []string{"poll-timeout"}, func(t *overrideTarget, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			t.cfg.PollTimeout = parsed
		}
	}},
	{"SNAPSHOT_INTERVAL", []string{"snapshot-interval"}, func(t *overrideTarget, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			t.cfg.SnapshotInterval = parsed
		}
	}},

	// String overrides
	{"SOURCE", []string{"source"}, func(t *overrideTarget, v string) {
		t.cfg.SourceFile = v
	}},
	{"OBSERVATION_DATE", []string{"observation-date"}, func(t *overrideTarget, v string) {
		*t.obsDate = v
	}},
	{"PERIODISATION", []string{"periodisation"}, func(t *overrideTarget, v string) {
		*t.periodisation = v
	}},
	{"PROCESS", []string{"process"}, func(t *overrideTarget, v string) {
		t.cfg.ProcessName = v
	}},
	{"CALIBRATION", []string{"calibration"}, func(t *overrideTarget, v string) {
		t.cfg.CalibrationFile = v
	}},
	{"TITLE", []string{"title"}, func(t *overrideTarget, v string) {
		t.cfg.Title = v
	}},

	// Boolean overrides
	{"QUIET", []string{"quiet", "q"}, func(t *overrideTarget, v string) {
		t.cfg.Quiet = parseBoolEnv(v, t.cfg.Quiet)
	}},
	{"VERBOSE", []string{"verbose", "v"}, func(t *overrideTarget, v string) {
		t.cfg.Verbose = parseBoolEnv(v, t.cfg.Verbose)
	}},
	{"BAR", []string{"bar"}, func(t *overrideTarget, v string) {
		t.cfg.Bar = parseBoolEnv(v, t.cfg.Bar)
	}},
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
func applyEnvOverrides(cfg *AppConfig, fs *flag.FlagSet, obsDate, periodisation *string) {
	target := &overrideTarget{cfg: cfg, obsDate: obsDate, periodisation: periodisation}
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(target, val)
		}
	}
}
