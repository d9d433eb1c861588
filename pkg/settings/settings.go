// Package settings resolves tracing parameters from presets and form fields.
//
// A conversion request names a preset (logo, photo, bw, ...) and carries
// per-field overrides. Resolution is a pure table lookup: a known preset
// replaces every field with its table entry, while "custom" or an
// unrecognized preset uses the submitted fields, falling back to defaults
// for the ones left empty.
//
// Every value that ends up on a tracer command line is validated against
// its declared domain here, before any external process is started.
// colorPrecision is the one exception to rejection: it is clamped into
// [MinColorPrecision, MaxColorPrecision].
package settings

import (
	"strings"

	"github.com/nicholaspatten/svgit/pkg/errors"
)

// Curve fitting modes understood by vtracer.
const (
	ModeSpline  = "spline"
	ModePolygon = "polygon"
	ModePixel   = "pixel"
)

// Color modes. Binary and grayscale both route to the monochrome engine.
const (
	ColorModeColor     = "color"
	ColorModeGrayscale = "grayscale"
	ColorModeBinary    = "binary"
)

// Tracing engines.
const (
	EngineColor      = "vtracer"
	EngineMonochrome = "potrace"
)

// Parameter bounds.
const (
	MinColorPrecision = 1
	MaxColorPrecision = 8
	MaxThreshold      = 180
)

// Default values applied to empty form fields.
const (
	DefaultMode            = ModeSpline
	DefaultColorMode       = ColorModeColor
	DefaultColorPrecision  = 6
	DefaultCornerThreshold = 60
	DefaultSpliceThreshold = 45
	DefaultFilterSpeckle   = 2
	DefaultPathPrecision   = 4
)

// PresetCustom selects the submitted per-field values.
const PresetCustom = "custom"

// Settings is the fully resolved parameter set for one conversion.
type Settings struct {
	Preset          string `json:"preset"`
	Mode            string `json:"mode"`
	ColorMode       string `json:"colorMode"`
	ColorPrecision  int    `json:"colorPrecision"`
	CornerThreshold int    `json:"cornerThreshold"`
	SpliceThreshold int    `json:"spliceThreshold"`
	FilterSpeckle   int    `json:"filterSpeckle"`
	PathPrecision   int    `json:"pathPrecision"`
}

// Fields carries the raw string values of a conversion request, as they
// arrive from a multipart form or CLI flags. Empty strings mean "not set".
type Fields struct {
	Preset          string
	Mode            string
	ColorMode       string
	ColorPrecision  string
	CornerThreshold string
	SpliceThreshold string
	FilterSpeckle   string
	PathPrecision   string
}

// FieldsFromForm builds Fields from a lookup function such as
// (*http.Request).FormValue.
func FieldsFromForm(get func(string) string) Fields {
	return Fields{
		Preset:          get("preset"),
		Mode:            get("mode"),
		ColorMode:       get("colorMode"),
		ColorPrecision:  get("colorPrecision"),
		CornerThreshold: get("cornerThreshold"),
		SpliceThreshold: get("spliceThreshold"),
		FilterSpeckle:   get("filterSpeckle"),
		PathPrecision:   get("pathPrecision"),
	}
}

// Default returns the settings used when no field is supplied.
func Default() Settings {
	return Settings{
		Preset:          PresetCustom,
		Mode:            DefaultMode,
		ColorMode:       DefaultColorMode,
		ColorPrecision:  DefaultColorPrecision,
		CornerThreshold: DefaultCornerThreshold,
		SpliceThreshold: DefaultSpliceThreshold,
		FilterSpeckle:   DefaultFilterSpeckle,
		PathPrecision:   DefaultPathPrecision,
	}
}

// Resolve turns raw request fields into validated Settings.
//
// A known preset wins over the per-field values. Any other preset name is
// kept for logging but the fields are used as submitted. Numeric fields
// that fail to parse, enums outside their domain and out-of-range
// thresholds are reported as INVALID_INPUT.
func Resolve(f Fields) (Settings, error) {
	name := strings.ToLower(strings.TrimSpace(f.Preset))
	if err := errors.ValidateToken("preset", name); err != nil {
		return Settings{}, err
	}
	if p, ok := Lookup(name); ok {
		return p, nil
	}

	s := Default()
	if name != "" {
		s.Preset = name
	}
	if v := strings.ToLower(strings.TrimSpace(f.Mode)); v != "" {
		s.Mode = v
	}
	if v := strings.ToLower(strings.TrimSpace(f.ColorMode)); v != "" {
		s.ColorMode = v
	}

	ints := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"colorPrecision", f.ColorPrecision, &s.ColorPrecision},
		{"cornerThreshold", f.CornerThreshold, &s.CornerThreshold},
		{"spliceThreshold", f.SpliceThreshold, &s.SpliceThreshold},
		{"filterSpeckle", f.FilterSpeckle, &s.FilterSpeckle},
		{"pathPrecision", f.PathPrecision, &s.PathPrecision},
	}
	for _, it := range ints {
		n, ok, err := errors.ParseInt(it.name, it.raw)
		if err != nil {
			return Settings{}, err
		}
		if ok {
			*it.dst = n
		}
	}

	s.ColorPrecision = ClampColorPrecision(s.ColorPrecision)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every field against its domain. It does not clamp.
func (s Settings) Validate() error {
	if err := errors.ValidateEnum("mode", s.Mode, ModeSpline, ModePolygon, ModePixel); err != nil {
		return err
	}
	if err := errors.ValidateEnum("colorMode", s.ColorMode, ColorModeColor, ColorModeGrayscale, ColorModeBinary); err != nil {
		return err
	}
	if err := errors.ValidateRange("colorPrecision", s.ColorPrecision, MinColorPrecision, MaxColorPrecision); err != nil {
		return err
	}
	if err := errors.ValidateRange("cornerThreshold", s.CornerThreshold, 0, MaxThreshold); err != nil {
		return err
	}
	if err := errors.ValidateRange("spliceThreshold", s.SpliceThreshold, 0, MaxThreshold); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("filterSpeckle", s.FilterSpeckle); err != nil {
		return err
	}
	return errors.ValidateNonNegative("pathPrecision", s.PathPrecision)
}

// ClampColorPrecision forces n into [MinColorPrecision, MaxColorPrecision].
func ClampColorPrecision(n int) int {
	return max(MinColorPrecision, min(MaxColorPrecision, n))
}

// Monochrome reports whether these settings route to the bitmap tracer.
func (s Settings) Monochrome() bool {
	return s.ColorMode == ColorModeBinary || s.ColorMode == ColorModeGrayscale
}

// Engine returns the name of the tracer these settings select.
func (s Settings) Engine() string {
	if s.Monochrome() {
		return EngineMonochrome
	}
	return EngineColor
}
