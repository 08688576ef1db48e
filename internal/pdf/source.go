// Package pdf opens PDF files and rasterizes their pages to JPEG.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
)

const (
	// DefaultScale renders at 1.5x the PDF's 72 DPI user space.
	DefaultScale = 1.5

	// DefaultJPEGQuality is the encoder quality for rendered pages.
	DefaultJPEGQuality = 80

	// MIMETypeJPEG is the content type of rendered pages.
	MIMETypeJPEG = "image/jpeg"

	pointsPerInch = 72.0
)

// Backend names a rasterizer implementation.
type Backend string

const (
	BackendFitz     Backend = "fitz"
	BackendPdftoppm Backend = "pdftoppm"
)

// Source is an opened PDF that can rasterize its pages.
type Source interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Rasterize renders 1-based page n at scale and returns JPEG bytes.
	// Output is deterministic for a fixed scale.
	Rasterize(ctx context.Context, n int, scale float64) ([]byte, error)

	Close() error
}

// Options configures Open.
type Options struct {
	Backend     Backend
	JPEGQuality int
}

// Open decodes data with the configured backend.
func Open(data []byte, opts Options) (Source, error) {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	switch opts.Backend {
	case "", BackendFitz:
		return OpenFitz(data, opts.JPEGQuality)
	case BackendPdftoppm:
		return OpenPdftoppm(data, opts.JPEGQuality)
	default:
		return nil, fmt.Errorf("unknown render backend: %s", opts.Backend)
	}
}

// DPI converts a render scale to dots per inch.
func DPI(scale float64) float64 {
	if scale <= 0 {
		scale = DefaultScale
	}
	return pointsPerInch * scale
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func checkPage(n, count int) error {
	if n < 1 || n > count {
		return &RenderError{Page: n, Err: fmt.Errorf("page out of range 1..%d", count)}
	}
	return nil
}
