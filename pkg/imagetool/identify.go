package imagetool

import (
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
)

// Identifier reports the pixel size of an image file.
type Identifier interface {
	Dimensions(ctx context.Context, path string) (Dimensions, error)
}

// DecodeIdentifier reads only the image header in-process. It covers the
// formats the upload validator accepts.
type DecodeIdentifier struct{}

// Dimensions implements Identifier.
func (DecodeIdentifier) Dimensions(_ context.Context, path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, apperr.Wrap(apperr.ErrCodeIO, err, "open image")
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}, apperr.Wrap(apperr.ErrCodePreprocessFailed, err, "decode image header")
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// ChainIdentifier tries each Identifier in turn and returns the first
// success, or the joined errors if all fail.
type ChainIdentifier []Identifier

// Dimensions implements Identifier.
func (c ChainIdentifier) Dimensions(ctx context.Context, path string) (Dimensions, error) {
	var errs []error
	for _, id := range c {
		d, err := id.Dimensions(ctx, path)
		if err == nil && d.Valid() {
			return d, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return Dimensions{}, apperr.New(apperr.ErrCodePreprocessFailed, "no identifier reported dimensions")
	}
	return Dimensions{}, errors.Join(errs...)
}
