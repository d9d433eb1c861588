package cli

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nicholaspatten/svgit/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Converted logo.png (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, p.elapsed())
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

// =============================================================================
// Log-backed observability hooks
// =============================================================================

// logHooks reports pipeline, tool and cache events at debug level.
type logHooks struct {
	logger *log.Logger
}

// installLogHooks registers logHooks for all three event categories.
func installLogHooks(l *log.Logger) {
	h := &logHooks{logger: l.WithPrefix("hooks")}
	observability.SetPipelineHooks(h)
	observability.SetToolHooks(h)
	observability.SetCacheHooks(h)
}

func (h *logHooks) OnStageStart(_ context.Context, stage string) {
	h.logger.Debug("stage start", "stage", stage)
}

func (h *logHooks) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("stage failed", "stage", stage, "duration", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("stage done", "stage", stage, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnConversionComplete(_ context.Context, engine string, d time.Duration, err error) {
	h.logger.Debug("conversion complete", "engine", engine, "duration", d.Round(time.Millisecond), "ok", err == nil)
}

func (h *logHooks) OnToolStart(_ context.Context, tool string, args []string) {
	h.logger.Debug("tool start", "tool", tool, "args", strings.Join(args, " "))
}

func (h *logHooks) OnToolComplete(_ context.Context, tool string, exitCode int, d time.Duration, err error) {
	h.logger.Debug("tool done", "tool", tool, "exit", exitCode, "duration", d.Round(time.Millisecond), "ok", err == nil)
}

func (h *logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}
