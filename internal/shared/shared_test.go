package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name    string
		seconds int
		want    string
	}{
		{name: "zero", seconds: 0, want: "0:00"},
		{name: "under a minute", seconds: 7, want: "0:07"},
		{name: "minutes", seconds: 215, want: "3:35"},
		{name: "hours", seconds: 3725, want: "1:02:05"},
		{name: "negative clamps", seconds: -4, want: "0:00"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.seconds); got != tt.want {
				t.Errorf("FormatDuration(%d) = %v, want %v", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tc := map[string]log.Level{
		"":        log.InfoLevel,
		"debug":   log.DebugLevel,
		"WARN":    log.WarnLevel,
		"garbage": log.InfoLevel,
	}
	for in, want := range tc {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger writes to buffer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")
		logger.Info("hello")

		if !strings.Contains(buf.String(), "component=test") {
			t.Errorf("expected child logger fields in output, got %q", buf.String())
		}
	})

	t.Run("OpenLogFile creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "sonance.log")
		f, err := OpenLogFile(path)
		if err != nil {
			t.Fatalf("OpenLogFile() error = %v", err)
		}
		defer f.Close()
		NewLogger(f).Info("to file")
	})
}

func TestValidateJSON(t *testing.T) {
	if err := ValidateJSON([]byte(`{"ok":true}`)); err != nil {
		t.Errorf("expected valid JSON, got %v", err)
	}
	if err := ValidateJSON([]byte(`{"ok":`)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLogSink(t *testing.T) {
	first, second := &bytes.Buffer{}, &bytes.Buffer{}
	sink := NewLogSink(first)
	child := WithLogger(NewLogger(sink), "component", "test")

	child.Info("before")
	if prev := sink.Redirect(second); prev != first {
		t.Error("expected Redirect to return the previous writer")
	}
	child.Info("after")

	if !strings.Contains(first.String(), "before") || strings.Contains(first.String(), "after") {
		t.Errorf("unexpected first output %q", first.String())
	}
	if !strings.Contains(second.String(), "after") || !strings.Contains(second.String(), "component=test") {
		t.Errorf("unexpected second output %q", second.String())
	}
}
