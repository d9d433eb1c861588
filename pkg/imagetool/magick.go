// Package imagetool prepares raster images for tracing with ImageMagick.
//
// Two preprocessing recipes exist. Monochrome flattens the image onto white,
// converts to grayscale, stretches contrast and thresholds it into a PBM
// bitmap for potrace. Normalize trims uniform padding and re-pads against
// white, producing a PNG for vtracer.
//
// Dimensions are read with `magick identify`; see Identifier for the
// in-process fallback.
package imagetool

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
	"github.com/nicholaspatten/svgit/pkg/toolexec"
)

// Budgets bounds each magick invocation.
type Budgets struct {
	Monochrome toolexec.Budget
	Normalize  toolexec.Budget
	Identify   toolexec.Budget
}

// DefaultBudgets returns the stock per-step budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		Monochrome: toolexec.Budget{Timeout: 45 * time.Second, KillAfter: 40 * time.Second},
		Normalize:  toolexec.Budget{Timeout: 30 * time.Second, KillAfter: 25 * time.Second},
		Identify:   toolexec.Budget{Timeout: 10 * time.Second, KillAfter: 8 * time.Second},
	}
}

// Dimensions is an image size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string { return fmt.Sprintf("%dx%d", d.Width, d.Height) }

// Valid reports whether both sides are positive.
func (d Dimensions) Valid() bool { return d.Width > 0 && d.Height > 0 }

// Magick wraps the ImageMagick executable.
type Magick struct {
	Runner  toolexec.Runner
	Path    string // defaults to "magick"
	Budgets Budgets
}

// NewMagick returns a Magick using r and the default budgets.
func NewMagick(r toolexec.Runner, path string) *Magick {
	return &Magick{Runner: r, Path: path, Budgets: DefaultBudgets()}
}

func (m *Magick) command(args []string) toolexec.Command {
	return toolexec.Command{Name: "magick", Path: m.Path, Args: args}
}

// Monochrome binarizes in into a PBM bitmap at out.
func (m *Magick) Monochrome(ctx context.Context, in, out string) error {
	_, err := m.Runner.Run(ctx, m.command(MonochromeArgs(in, out)), m.Budgets.Monochrome)
	return toolexec.Classify(err, toolexec.Failure{
		Code:    apperr.ErrCodePreprocessFailed,
		Message: "ImageMagick failed",
		Timeout: "ImageMagick processing timed out",
	})
}

// Normalize trims uniform padding from in and writes a PNG at out.
func (m *Magick) Normalize(ctx context.Context, in, out string) error {
	_, err := m.Runner.Run(ctx, m.command(NormalizeArgs(in, out)), m.Budgets.Normalize)
	return toolexec.Classify(err, toolexec.Failure{
		Code:    apperr.ErrCodePreprocessFailed,
		Message: "ImageMagick preprocessing failed",
		Timeout: "ImageMagick preprocessing timed out",
	})
}

// Dimensions reports the pixel size of the first frame of path.
func (m *Magick) Dimensions(ctx context.Context, path string) (Dimensions, error) {
	res, err := m.Runner.Run(ctx, m.command(IdentifyArgs(path)), m.Budgets.Identify)
	if err != nil {
		return Dimensions{}, toolexec.Classify(err, toolexec.Failure{
			Code:    apperr.ErrCodePreprocessFailed,
			Message: "ImageMagick identify failed",
			Timeout: "ImageMagick identify timed out",
		})
	}
	return ParseDimensions(res.Stdout)
}

// MonochromeArgs returns the argv that binarizes in into a PBM at out.
func MonochromeArgs(in, out string) []string {
	return []string{
		in,
		"-background", "white",
		"-alpha", "remove",
		"-alpha", "off",
		"-colorspace", "Gray",
		"-contrast-stretch", "0x15%",
		"-threshold", "75%",
		"-monochrome",
		out,
	}
}

// NormalizeArgs returns the argv that trims padding from in and writes out.
func NormalizeArgs(in, out string) []string {
	return []string{in, "-trim", "+repage", "-background", "white", "-gravity", "center", out}
}

// IdentifyArgs returns the argv that prints "<w> <h>" for the first frame.
func IdentifyArgs(in string) []string {
	return []string{"identify", "-format", "%w %h", in + "[0]"}
}

// ParseDimensions parses identify output of the form "<w> <h>".
func ParseDimensions(s string) (Dimensions, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return Dimensions{}, apperr.New(apperr.ErrCodePreprocessFailed, "unexpected identify output").WithDetails(s)
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	d := Dimensions{Width: w, Height: h}
	if errW != nil || errH != nil || !d.Valid() {
		return Dimensions{}, apperr.New(apperr.ErrCodePreprocessFailed, "unexpected identify output").WithDetails(s)
	}
	return d, nil
}
