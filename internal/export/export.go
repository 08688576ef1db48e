// Package export turns finished pages into downloadable documents.
//
// Every exporter includes only pages that are done and selected, in page
// order. An empty selection is a ValidationError wrapping
// ErrNothingToExport and produces no bytes.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackzampolin/folio/internal/document"
)

// Format identifies an output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatWord     Format = "doc"
	FormatMarkdown Format = "md"
	FormatEPUB     Format = "epub"
)

// Formats lists every supported format.
var Formats = []Format{FormatHTML, FormatWord, FormatMarkdown, FormatEPUB}

// ErrNothingToExport is returned when no page is both done and selected.
var ErrNothingToExport = errors.New("no extracted pages selected for export")

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// ValidationError is a request that cannot produce a document.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("export: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ParseFormat accepts a format name or extension, with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "html", "htm":
		return FormatHTML, nil
	case "doc", "word":
		return FormatWord, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "epub":
		return FormatEPUB, nil
	}
	return "", &ValidationError{Err: fmt.Errorf("%q: %w", s, ErrUnknownFormat)}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatWord:
		return "application/msword"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatEPUB:
		return "application/epub+zip"
	default:
		return "text/html; charset=utf-8"
	}
}

// FileName derives the download name from the uploaded file name,
// e.g. "scan.PDF" becomes "scan_extracted.doc".
func FileName(source string, f Format) string {
	return Title(source) + "_extracted." + f.Extension()
}

// Title is the source file name without directory and .pdf extension.
func Title(source string) string {
	base := filepath.Base(strings.ReplaceAll(source, "\\", "/"))
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == "/" {
		return "document"
	}
	return base
}

// Export renders pages in the given format.
func Export(f Format, title string, pages []document.Page) ([]byte, error) {
	switch f {
	case FormatHTML:
		return HTML(title, pages)
	case FormatWord:
		return Word(title, pages)
	case FormatMarkdown:
		return Markdown(title, pages)
	case FormatEPUB:
		return EPUB(title, pages)
	}
	return nil, &ValidationError{Err: fmt.Errorf("%q: %w", f, ErrUnknownFormat)}
}

// selectPages keeps done and selected pages, sorted by page number.
func selectPages(pages []document.Page) ([]document.Page, error) {
	var out []document.Page
	for _, p := range pages {
		if p.Exportable() {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, &ValidationError{Err: ErrNothingToExport}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

const emptyPageHTML = "<p><i>(No content)</i></p>"

func pageBody(p document.Page) string {
	if strings.TrimSpace(p.Content) == "" {
		return emptyPageHTML
	}
	return p.Content
}

// escapeXML escapes text for element content and attribute values.
func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

const commonCSS = `
  body { font-family: 'Times New Roman', serif; line-height: 1.5; color: #000; }
  img { max-width: 100%; height: auto; }
  h1, h2, h3, h4, h5, h6 { color: #000; margin-top: 1em; margin-bottom: 0.5em; }
  table { border-collapse: collapse; width: 100%; margin: 1em 0; }
  th, td { border: 1px solid #000; padding: 6px; text-align: left; }
  p { margin-bottom: 1em; text-align: justify; }
`
