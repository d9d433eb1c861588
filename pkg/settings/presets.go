package settings

import "sort"

// presets maps preset names to their complete parameter sets. The color
// counts offered by the UI are stored already clamped to the tracer's
// precision range.
var presets = map[string]Settings{
	"photo": {
		Mode: ModeSpline, ColorMode: ColorModeColor, ColorPrecision: 8,
		CornerThreshold: 60, SpliceThreshold: 45, FilterSpeckle: 2, PathPrecision: 4,
	},
	"logo": {
		Mode: ModePolygon, ColorMode: ColorModeColor, ColorPrecision: 8,
		CornerThreshold: 80, SpliceThreshold: 60, FilterSpeckle: 4, PathPrecision: 6,
	},
	"lineart": {
		Mode: ModeSpline, ColorMode: ColorModeGrayscale, ColorPrecision: 2,
		CornerThreshold: 40, SpliceThreshold: 30, FilterSpeckle: 1, PathPrecision: 4,
	},
	"bw": {
		Mode: ModePolygon, ColorMode: ColorModeGrayscale, ColorPrecision: 2,
		CornerThreshold: 90, SpliceThreshold: 80, FilterSpeckle: 2, PathPrecision: 2,
	},
	"poster": {
		Mode: ModePolygon, ColorMode: ColorModeColor, ColorPrecision: 4,
		CornerThreshold: 70, SpliceThreshold: 50, FilterSpeckle: 3, PathPrecision: 3,
	},
	"detailed": {
		Mode: ModeSpline, ColorMode: ColorModeColor, ColorPrecision: 8,
		CornerThreshold: 30, SpliceThreshold: 20, FilterSpeckle: 1, PathPrecision: 8,
	},
}

// presetDescriptions is shown by the CLI preset table and picker.
var presetDescriptions = map[string]string{
	"photo":    "Smooth curves, full color",
	"logo":     "Flat shapes, sharp corners",
	"lineart":  "Monochrome outlines",
	"bw":       "Black & white, simplified",
	"poster":   "Few colors, bold regions",
	"detailed": "Fine detail, many paths",
	"custom":   "Use the individual fields",
}

// Lookup returns the settings for a named preset. The custom preset and
// unknown names report ok=false.
func Lookup(name string) (Settings, bool) {
	p, ok := presets[name]
	if !ok {
		return Settings{}, false
	}
	p.Preset = name
	return p, true
}

// Names returns the preset names in a stable order, with custom last.
func Names() []string {
	names := make([]string, 0, len(presets)+1)
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(names, PresetCustom)
}

// Describe returns a one-line description of a preset.
func Describe(name string) string {
	return presetDescriptions[name]
}
