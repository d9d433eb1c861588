// Package tracer invokes the external vectorization engines.
//
// Potrace traces a PBM bitmap into a smooth monochrome SVG. VTracer traces
// a color raster with the curve-fitting and clustering parameters carried
// in settings.Settings. Both run through a toolexec.Runner, so the
// pipeline can substitute a fake in tests.
package tracer

import (
	"context"
	"strconv"
	"time"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
	"github.com/nicholaspatten/svgit/pkg/settings"
	"github.com/nicholaspatten/svgit/pkg/toolexec"
)

// Tracer converts a preprocessed raster at in into an SVG at out.
type Tracer interface {
	Name() string
	Trace(ctx context.Context, in, out string, s settings.Settings) error
}

// Potrace wraps the potrace executable.
type Potrace struct {
	Runner toolexec.Runner
	Path   string
	Budget toolexec.Budget
}

// NewPotrace returns a Potrace with the default 30s budget.
func NewPotrace(r toolexec.Runner, path string) *Potrace {
	return &Potrace{
		Runner: r,
		Path:   path,
		Budget: toolexec.Budget{Timeout: 30 * time.Second, KillAfter: 25 * time.Second},
	}
}

// Name implements Tracer.
func (p *Potrace) Name() string { return settings.EngineMonochrome }

// Trace implements Tracer. Settings are unused; potrace runs with its
// defaults plus SVG output.
func (p *Potrace) Trace(ctx context.Context, in, out string, _ settings.Settings) error {
	_, err := p.Runner.Run(ctx, toolexec.Command{Name: "potrace", Path: p.Path, Args: PotraceArgs(in, out)}, p.Budget)
	return toolexec.Classify(err, toolexec.Failure{
		Code:    apperr.ErrCodeTraceFailed,
		Message: "Potrace failed",
		Timeout: "Potrace processing timed out",
	})
}

// PotraceArgs returns the potrace argv.
func PotraceArgs(in, out string) []string {
	return []string{in, "-s", "-o", out}
}

// VTracer wraps the vtracer executable.
type VTracer struct {
	Runner toolexec.Runner
	Path   string
	Budget toolexec.Budget
}

// NewVTracer returns a VTracer with the default 60s budget.
func NewVTracer(r toolexec.Runner, path string) *VTracer {
	return &VTracer{
		Runner: r,
		Path:   path,
		Budget: toolexec.Budget{Timeout: 60 * time.Second, KillAfter: 55 * time.Second},
	}
}

// Name implements Tracer.
func (v *VTracer) Name() string { return settings.EngineColor }

// Trace implements Tracer.
func (v *VTracer) Trace(ctx context.Context, in, out string, s settings.Settings) error {
	_, err := v.Runner.Run(ctx, toolexec.Command{Name: "vtracer", Path: v.Path, Args: VTracerArgs(in, out, s)}, v.Budget)
	return toolexec.Classify(err, toolexec.Failure{
		Code:    apperr.ErrCodeTraceFailed,
		Message: "VTracer failed",
		Timeout: "VTracer processing timed out - try reducing image size or complexity",
	})
}

// VTracerArgs returns the vtracer argv. Color precision is clamped here as
// well, so a caller that bypassed settings.Resolve still passes [1,8].
func VTracerArgs(in, out string, s settings.Settings) []string {
	return []string{
		"--input", in,
		"--output", out,
		"--colormode", s.ColorMode,
		"--color_precision", strconv.Itoa(settings.ClampColorPrecision(s.ColorPrecision)),
		"--mode", s.Mode,
		"--corner_threshold", strconv.Itoa(s.CornerThreshold),
		"--splice_threshold", strconv.Itoa(s.SpliceThreshold),
		"--filter_speckle", strconv.Itoa(s.FilterSpeckle),
		"--path_precision", strconv.Itoa(s.PathPrecision),
	}
}

// Select returns the tracer for s: potrace for binary and grayscale
// color modes, vtracer otherwise.
func Select(s settings.Settings, mono, color Tracer) Tracer {
	if s.Monochrome() {
		return mono
	}
	return color
}
