// Package upload validates raster image uploads before any processing.
//
// Validation is side-effect free and applies its rules in a fixed order:
// presence, size, declared MIME type, and integrity. The first failing rule
// decides the error. An unrecognized magic number is only a warning; the
// downstream tools sniff content themselves and may still succeed.
package upload

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/nicholaspatten/svgit/pkg/errors"
)

// DefaultMaxBytes is the upload ceiling used when none is configured.
const DefaultMaxBytes int64 = 15 << 20

// AllowedTypes lists the accepted declared MIME types.
var AllowedTypes = []string{
	"image/jpeg", "image/jpg", "image/png", "image/gif",
	"image/webp", "image/bmp", "image/tiff",
}

// Upload is a received file together with its declared metadata.
type Upload struct {
	Present  bool   // false when the request had no file field
	Filename string // client-supplied name, informational only
	MIMEType string // declared Content-Type of the part
	Size     int64  // declared size; falls back to len(Data)
	Data     []byte
}

// Report carries non-fatal findings.
type Report struct {
	Format   string   // sniffed format ("png", "jpeg", ...) or ""
	Warnings []string // e.g. unrecognized magic number
}

// Validator applies the upload rules.
type Validator struct {
	MaxBytes int64
}

// NewValidator returns a Validator with the given size ceiling. A
// non-positive ceiling selects DefaultMaxBytes.
func NewValidator(maxBytes int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Validator{MaxBytes: maxBytes}
}

// Validate checks u. The returned Report is meaningful only when err is nil.
func (v *Validator) Validate(u Upload) (Report, error) {
	var rep Report

	if !u.Present {
		return rep, errors.New(errors.ErrCodeMissingFile, "No file provided")
	}

	size := u.Size
	if size <= 0 {
		size = int64(len(u.Data))
	}
	if size > v.MaxBytes || int64(len(u.Data)) > v.MaxBytes {
		return rep, errors.New(errors.ErrCodeFileTooLarge, "File too large").
			WithDetails(fmt.Sprintf("maximum size is %s, received %s", humanBytes(v.MaxBytes), humanBytes(size)))
	}

	mt := NormalizeMIME(u.MIMEType)
	if !IsAllowedType(mt) {
		return rep, errors.New(errors.ErrCodeUnsupportedType, "Unsupported file type").
			WithDetails(fmt.Sprintf("received %q, supported: %s", u.MIMEType, strings.Join(AllowedTypes, ", ")))
	}

	if len(u.Data) == 0 {
		return rep, errors.New(errors.ErrCodeEmptyOrCorrupt, "Failed to process uploaded file").
			WithDetails("empty file")
	}

	rep.Format = Sniff(u.Data)
	if rep.Format == "" {
		rep.Warnings = append(rep.Warnings, "file header does not match PNG, JPEG, GIF or WebP; proceeding anyway")
	}
	return rep, nil
}

// NormalizeMIME lowercases a Content-Type value and strips parameters.
func NormalizeMIME(s string) string {
	s = strings.TrimSpace(s)
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// IsAllowedType reports whether a normalized MIME type is accepted.
func IsAllowedType(mt string) bool {
	for _, a := range AllowedTypes {
		if mt == a {
			return true
		}
	}
	return false
}

// Sniff identifies an image by its leading bytes. It recognizes the four
// formats browsers commonly upload and returns "" for anything else.
func Sniff(b []byte) string {
	switch {
	case len(b) >= 2 && b[0] == 0x89 && b[1] == 0x50:
		return "png"
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8:
		return "jpeg"
	case len(b) >= 3 && bytes.Equal(b[:3], []byte("GIF")):
		return "gif"
	case len(b) >= 12 && bytes.Equal(b[8:12], []byte("WEBP")):
		return "webp"
	}
	return ""
}

// Extension returns a file extension for a MIME type, used when naming the
// staged input. Unknown types map to ".img"; the tools sniff content anyway.
func Extension(mimeType string) string {
	switch NormalizeMIME(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	}
	return ".img"
}

// TypeFromFilename guesses a MIME type from a file name. The CLI uses it
// for local files that carry no declared type.
func TypeFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	return ""
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%dMB", (n+mb/2)/mb)
	}
	return fmt.Sprintf("%dB", n)
}
