package cache

import (
	"github.com/nicholaspatten/svgit/pkg/settings"
)

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis without seeing each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "svgit:staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer selects
// DefaultKeyer; an empty prefix returns inner unchanged.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	if prefix == "" {
		return inner
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ConversionKey implements Keyer.
func (k *ScopedKeyer) ConversionKey(imageHash string, s settings.Settings) string {
	return k.prefix + k.inner.ConversionKey(imageHash, s)
}
