package pdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// FitzDocument rasterizes pages through MuPDF.
type FitzDocument struct {
	mu      sync.Mutex
	doc     *fitz.Document
	pages   int
	quality int
}

// OpenFitz decodes data in memory.
func OpenFitz(data []byte, quality int) (*FitzDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &FitzDocument{
		doc:     doc,
		pages:   doc.NumPage(),
		quality: quality,
	}, nil
}

// PageCount returns the number of pages.
func (d *FitzDocument) PageCount() int {
	return d.pages
}

// Rasterize renders page n at scale.
func (d *FitzDocument) Rasterize(ctx context.Context, n int, scale float64) ([]byte, error) {
	if err := checkPage(n, d.pages); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.doc == nil {
		d.mu.Unlock()
		return nil, &RenderError{Page: n, Err: fmt.Errorf("document closed")}
	}
	img, err := d.doc.ImageDPI(n-1, DPI(scale))
	d.mu.Unlock()
	if err != nil {
		return nil, &RenderError{Page: n, Err: err}
	}

	data, err := encodeJPEG(img, d.quality)
	if err != nil {
		return nil, &RenderError{Page: n, Err: err}
	}
	return data, nil
}

// Close releases the MuPDF document.
func (d *FitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

var _ Source = (*FitzDocument)(nil)
