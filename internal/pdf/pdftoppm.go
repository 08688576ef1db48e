package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// PdftoppmDocument rasterizes pages by shelling out to pdftoppm (poppler-utils).
type PdftoppmDocument struct {
	dir     string
	path    string
	pages   int
	quality int
}

// OpenPdftoppm writes data to a private temp dir and counts pages with pdfcpu.
func OpenPdftoppm(data []byte, quality int) (*PdftoppmDocument, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("pdftoppm not found in PATH: %w", err)
	}

	pages, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "folio-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	path := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	return &PdftoppmDocument{
		dir:     dir,
		path:    path,
		pages:   pages,
		quality: quality,
	}, nil
}

// PageCount returns the number of pages.
func (d *PdftoppmDocument) PageCount() int {
	return d.pages
}

// Rasterize renders page n at scale.
func (d *PdftoppmDocument) Rasterize(ctx context.Context, n int, scale float64) ([]byte, error) {
	if err := checkPage(n, d.pages); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp(d.dir, "page-*")
	if err != nil {
		return nil, &RenderError{Page: n, Err: err}
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(n)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-jpeg",
		"-jpegopt", "quality="+strconv.Itoa(d.quality),
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.FormatFloat(DPI(scale), 'f', -1, 64),
		"-singlefile",
		d.path,
		prefix,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, &RenderError{Page: n, Err: fmt.Errorf("pdftoppm failed: %w (output: %s)", err, output)}
	}

	data, err := os.ReadFile(prefix + ".jpg")
	if err != nil {
		return nil, &RenderError{Page: n, Err: fmt.Errorf("pdftoppm did not create expected output: %w", err)}
	}
	return data, nil
}

// Close removes the temp copy of the PDF.
func (d *PdftoppmDocument) Close() error {
	return os.RemoveAll(d.dir)
}

var _ Source = (*PdftoppmDocument)(nil)
