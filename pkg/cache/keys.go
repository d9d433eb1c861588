package cache

import (
	"github.com/nicholaspatten/svgit/pkg/settings"
)

// keyVersion is bumped whenever the cached payload or post-processing
// changes shape.
const keyVersion = "v1"

// Keyer builds cache keys.
type Keyer interface {
	// ConversionKey identifies the SVG produced from an image with the
	// given content hash under settings s.
	ConversionKey(imageHash string, s settings.Settings) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ConversionKey implements Keyer. The preset name is excluded: two presets
// that resolve to the same parameters share entries.
func (DefaultKeyer) ConversionKey(imageHash string, s settings.Settings) string {
	return hashKey("svg:"+keyVersion, imageHash, s.Engine(), s.Mode, s.ColorMode,
		settings.ClampColorPrecision(s.ColorPrecision), s.CornerThreshold, s.SpliceThreshold,
		s.FilterSpeckle, s.PathPrecision)
}
