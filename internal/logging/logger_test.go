package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFieldConstructors(t *testing.T) {
	err := errors.New("boom")
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{String("name", "x"), "name", "x"},
		{Int("count", 7), "count", 7},
		{Uint64("seed", uint64(42)), "seed", uint64(42)},
		{Float64("rate", 1.5), "rate", 1.5},
		{Dur("elapsed", time.Second), "elapsed", time.Second},
		{Err(err), "error", err},
	}
	for _, tt := range tests {
		if tt.field.Key != tt.key {
			t.Errorf("Key = %q, want %q", tt.field.Key, tt.key)
		}
		if tt.field.Value != tt.value {
			t.Errorf("Value = %v, want %v", tt.field.Value, tt.value)
		}
	}
}

func TestZerologLogger_EmitsFields(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	log := NewZerolog(zl)

	log.Info("valuation complete",
		String("result", "r1"),
		Int("legs", 3),
		Float64("fair", 12.5),
		Dur("elapsed", 2*time.Second),
		Err(errors.New("partial")),
	)

	line := buf.String()
	for _, want := range []string{
		`"message":"valuation complete"`,
		`"result":"r1"`,
		`"legs":3`,
		`"fair":12.5`,
		`"error":"partial"`,
		`"level":"info"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestZerologLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))

	log.Debug("hidden")
	log.Info("hidden too")
	log.Error("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output %q contains suppressed lines", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("output %q missing error line", out)
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNop()
	// Must not panic, even with nil error fields.
	log.Debug("a")
	log.Info("b", String("k", "v"))
	log.Warn("c")
	log.Error("d", Err(nil))
}
