//go:build !tesseract

package providers

import (
	"context"
	"errors"
)

// ErrTesseractUnavailable is returned when the binary was built without the
// tesseract build tag.
var ErrTesseractUnavailable = errors.New("tesseract support not compiled in (build with -tags tesseract)")

// TesseractClient is unavailable in this build.
type TesseractClient struct{}

// NewTesseractClient always fails in builds without libtesseract.
func NewTesseractClient(cfg TesseractConfig) (*TesseractClient, error) {
	return nil, ErrTesseractUnavailable
}

func (c *TesseractClient) Name() string               { return TesseractName }
func (c *TesseractClient) RequestsPerSecond() float64 { return 0 }
func (c *TesseractClient) Close() error               { return nil }

func (c *TesseractClient) Recognize(ctx context.Context, req *Request) (*Result, error) {
	return nil, ErrTesseractUnavailable
}

var _ Recognizer = (*TesseractClient)(nil)
