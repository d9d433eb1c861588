package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nicholaspatten/svgit/pkg/observability"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	if logger == nil {
		t.Fatal("newLogger() returned nil")
	}

	// Test that it can log
	logger.Info("test message")

	if buf.Len() == 0 {
		t.Error("logger should have written output")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{
			name:    "info at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Info("test") },
			wantLog: true,
		},
		{
			name:    "debug at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: false,
		},
		{
			name:    "debug at debug level",
			level:   log.DebugLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			tt.logFunc(logger)

			gotLog := buf.Len() > 0
			if gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	prog := newProgress(logger)
	if prog == nil {
		t.Fatal("newProgress() returned nil")
	}

	// Small delay to ensure measurable duration
	time.Sleep(10 * time.Millisecond)

	prog.done("test completed")

	output := buf.String()
	if output == "" {
		t.Error("progress.done() should produce output")
	}

	// Should contain the message
	if !bytes.Contains(buf.Bytes(), []byte("test completed")) {
		t.Error("progress.done() output should contain message")
	}
}

func TestLogHooks(t *testing.T) {
	defer observability.Reset()

	var buf bytes.Buffer
	installLogHooks(newLogger(&buf, log.DebugLevel))

	ctx := context.Background()
	observability.Pipeline().OnStageComplete(ctx, "trace", 12*time.Millisecond, errors.New("boom"))
	observability.Tool().OnToolStart(ctx, "vtracer", []string{"--input", "a.png"})
	observability.Cache().OnCacheSet(ctx, "conversion", 512)

	out := buf.String()
	for _, want := range []string{"stage failed", "trace", "boom", "tool start", "--input a.png", "cache set", "512"} {
		if !strings.Contains(out, want) {
			t.Errorf("hook output missing %q:\n%s", want, out)
		}
	}
}

func TestLogHooksQuietAtInfo(t *testing.T) {
	defer observability.Reset()

	var buf bytes.Buffer
	installLogHooks(newLogger(&buf, log.InfoLevel))
	observability.Cache().OnCacheHit(context.Background(), "conversion")
	if buf.Len() != 0 {
		t.Errorf("hooks logged at info level: %s", buf.String())
	}
}
