package pdf

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultMaxBytes is the largest accepted upload (200MB).
const DefaultMaxBytes int64 = 200 << 20

// MIMEType is the only accepted content type.
const MIMEType = "application/pdf"

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Validate checks an uploaded file before it is loaded. It sniffs the
// content type, enforces maxBytes (DefaultMaxBytes when <= 0) and runs a
// relaxed structural validation.
func Validate(name string, data []byte, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return &ValidationError{Message: fmt.Sprintf("%s is empty", name)}
	}
	if int64(len(data)) > maxBytes {
		return &ValidationError{Message: fmt.Sprintf("%s is larger than %dMB", name, maxBytes>>20)}
	}
	if ct := http.DetectContentType(data); ct != MIMEType {
		return &ValidationError{Message: fmt.Sprintf("%s is not a PDF (detected %s)", name, ct)}
	}
	if err := api.Validate(bytes.NewReader(data), relaxedConfig()); err != nil {
		return &ValidationError{Message: fmt.Sprintf("%s is not a readable PDF", name), Err: err}
	}
	return nil
}

// PageCount reads the page count from the PDF structure.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}
