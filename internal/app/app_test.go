package app

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
	"github.com/ontiyonke/quantdsl/internal/logging"
)

func TestNew_ConfigError(t *testing.T) {
	_, err := New([]string{"quanthedge"}, io.Discard)
	if err == nil {
		t.Fatal("New() with no source: error = nil, want config error")
	}
}

func TestNew_HelpFlag(t *testing.T) {
	_, err := New([]string{"quanthedge", "-h"}, io.Discard)
	if !IsHelpError(err) {
		t.Errorf("IsHelpError(%v) = false, want true", err)
	}
}

func TestRun_DemoQuiet(t *testing.T) {
	application, err := New([]string{
		"quanthedge", "-demo", "-quiet",
		"-paths", "500",
		"-seed", "9",
		"-observation-date", "2020-01-01",
		"-timeout", "30s",
		"-poll-timeout", "50ms",
		"-snapshot-interval", "10ms",
	}, io.Discard, WithLogger(logging.NewNop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var out bytes.Buffer
	code := application.Run(context.Background(), &out)
	if code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d, want %d (output %q)", code, apperrors.ExitSuccess, out.String())
	}

	// Quiet mode prints exactly one "mean ± stderr" line.
	line := strings.TrimSpace(out.String())
	if !strings.Contains(line, "±") || strings.Count(out.String(), "\n") != 1 {
		t.Errorf("quiet output = %q, want a single fair-value line", out.String())
	}
}

func TestRun_MissingSourceFile(t *testing.T) {
	application, err := New([]string{
		"quanthedge", "-source", "no/such/contract.qh", "-quiet",
	}, io.Discard, WithLogger(logging.NewNop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code := application.Run(context.Background(), io.Discard)
	if code != apperrors.ExitErrorGeneric {
		t.Errorf("Run() = %d, want %d", code, apperrors.ExitErrorGeneric)
	}
}

func TestRun_TimeoutExitCode(t *testing.T) {
	application, err := New([]string{
		"quanthedge", "-demo", "-quiet",
		"-paths", "200",
		"-seed", "1",
		"-timeout", "50ms",
		"-unit-delay", "100ms",
		"-poll-timeout", "10ms",
	}, io.Discard, WithLogger(logging.NewNop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code := application.Run(context.Background(), io.Discard)
	if code != apperrors.ExitErrorTimeout {
		t.Errorf("Run() = %d, want %d", code, apperrors.ExitErrorTimeout)
	}
}

func TestDemoSource(t *testing.T) {
	observation := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	source := demoSource(observation)

	if !strings.Contains(source, "GAS 10") {
		t.Errorf("demo source missing spot leg:\n%s", source)
	}
	for _, want := range []string{"GAS 2020-2 15", "GAS 2020-3 15", "GAS 2020-4 15"} {
		if !strings.Contains(source, want) {
			t.Errorf("demo source missing %q:\n%s", want, source)
		}
	}
}

func TestHasVersionFlag(t *testing.T) {
	if !HasVersionFlag([]string{"-version"}) || !HasVersionFlag([]string{"--version"}) {
		t.Error("version flag not detected")
	}
	if HasVersionFlag([]string{"-demo"}) {
		t.Error("false positive version flag")
	}
}

func TestPrintVersion(t *testing.T) {
	var out bytes.Buffer
	PrintVersion(&out)
	if !strings.HasPrefix(out.String(), "quanthedge ") {
		t.Errorf("version banner = %q", out.String())
	}
}
