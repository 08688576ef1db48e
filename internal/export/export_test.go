package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jackzampolin/folio/internal/document"
)

func donePage(n int, content string) document.Page {
	return document.Page{Number: n, Status: document.StatusDone, Selected: true, Content: content}
}

func TestExporters_NothingToExport(t *testing.T) {
	cases := map[string][]document.Page{
		"no pages":   nil,
		"none done":  {{Number: 1, Status: document.StatusPending, Selected: true}},
		"deselected": {{Number: 1, Status: document.StatusDone, Selected: false, Content: "<p>x</p>"}},
		"error page": {{Number: 1, Status: document.StatusError, Selected: true, Error: "boom"}},
	}

	for name, pages := range cases {
		t.Run(name, func(t *testing.T) {
			for _, f := range Formats {
				data, err := Export(f, "doc", pages)
				if !errors.Is(err, ErrNothingToExport) {
					t.Errorf("%s: error = %v, want ErrNothingToExport", f, err)
				}
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("%s: error should be a ValidationError", f)
				}
				if data != nil {
					t.Errorf("%s: expected no bytes, got %d", f, len(data))
				}
			}
		})
	}
}

func TestHTML_FiltersAndOrders(t *testing.T) {
	pages := []document.Page{
		donePage(3, "<p>third</p>"),
		{Number: 2, Status: document.StatusError, Selected: true, Error: "failed"},
		donePage(1, "<p>first</p>"),
		{Number: 4, Status: document.StatusDone, Selected: false, Content: "<p>hidden</p>"},
	}

	data, err := HTML("scan", pages)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	out := string(data)

	if !strings.HasPrefix(out, "<!DOCTYPE html>") {
		t.Error("missing doctype")
	}
	if !strings.Contains(out, "<title>scan - Extracted Content</title>") {
		t.Error("missing title")
	}
	first := strings.Index(out, "--- Page 1 ---")
	third := strings.Index(out, "--- Page 3 ---")
	if first < 0 || third < 0 || first > third {
		t.Errorf("pages missing or out of order: %d, %d", first, third)
	}
	if strings.Contains(out, "Page 2") || strings.Contains(out, "hidden") {
		t.Error("unfinished or deselected pages must be excluded")
	}
	if strings.Count(out, `class="page-container"`) != 2 {
		t.Error("expected two page containers")
	}
}

func TestHTML_EscapesTitle(t *testing.T) {
	data, err := HTML(`a<b>&"c"`, []document.Page{donePage(1, "<p>x</p>")})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "a&lt;b&gt;&amp;&quot;c&quot;") {
		t.Error("title should be escaped")
	}
}

func TestHTML_EmptyContentPlaceholder(t *testing.T) {
	data, err := HTML("t", []document.Page{donePage(1, "  ")})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), emptyPageHTML) {
		t.Error("expected placeholder for an empty page")
	}
}

func TestWord(t *testing.T) {
	pages := []document.Page{
		donePage(2, "<p>two</p>"),
		donePage(1, "<p>one</p>"),
		donePage(5, "<p>five</p>"),
	}

	data, err := Word("scan", pages)
	if err != nil {
		t.Fatalf("Word() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("Word export must start with a UTF-8 BOM")
	}
	out := string(data)

	for _, want := range []string{
		"xmlns:w='urn:schemas-microsoft-com:office:word'",
		"size: 21cm 29.7cm",
		`<div class="WordSection1">`,
		`<div class="WordSection2">`,
		`<div class="WordSection5">`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if n := strings.Count(out, "page-break-before:always"); n != 2 {
		t.Errorf("page breaks = %d, want 2", n)
	}
	if strings.Index(out, "WordSection1") > strings.Index(out, "WordSection2") {
		t.Error("pages out of order")
	}
	if strings.Index(out, "page-break-before") < strings.Index(out, "WordSection1") {
		t.Error("no page break expected before the first page")
	}
}

func TestRoundTripEdit(t *testing.T) {
	doc := document.New(2)
	for n := 1; n <= 2; n++ {
		if err := doc.MarkProcessing(n); err != nil {
			t.Fatal(err)
		}
		if err := doc.MarkDone(n, "<p>machine text</p>"); err != nil {
			t.Fatal(err)
		}
	}
	edited := `<p>Corrected <strong>by hand</strong> &amp; kept</p>`
	if _, err := doc.EditContent(2, edited); err != nil {
		t.Fatal(err)
	}

	for _, f := range []Format{FormatHTML, FormatWord} {
		data, err := Export(f, "scan", doc.Pages())
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if !strings.Contains(string(data), edited) {
			t.Errorf("%s export does not contain the edited content verbatim", f)
		}
	}
}

func TestMarkdown(t *testing.T) {
	pages := []document.Page{
		donePage(2, "<p>Second <strong>page</strong></p>"),
		donePage(1, "<h1>Chapter 1</h1><p>Hello</p>"),
	}

	data, err := Markdown("scan", pages)
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	out := string(data)

	if !strings.HasPrefix(out, "# scan\n") {
		t.Errorf("missing title heading: %q", out)
	}
	for _, want := range []string{"## Page 1", "## Page 2", "# Chapter 1", "Hello", "**page**"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<p>") {
		t.Error("markdown should not contain paragraph tags")
	}
	if strings.Index(out, "## Page 1") > strings.Index(out, "## Page 2") {
		t.Error("pages out of order")
	}
}

func TestEPUB(t *testing.T) {
	pages := []document.Page{
		donePage(1, "<p>line<br>break</p>"),
		donePage(3, "<p>three</p>"),
	}

	data, err := EPUB("scan", pages)
	if err != nil {
		t.Fatalf("EPUB() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("not a zip archive: %v", err)
	}
	if zr.File[0].Name != "mimetype" || zr.File[0].Method != zip.Store {
		t.Error("mimetype must be the first, uncompressed entry")
	}

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(b)
	}

	for _, name := range []string{
		"META-INF/container.xml",
		"OEBPS/content.opf",
		"OEBPS/nav.xhtml",
		"OEBPS/toc.ncx",
		"OEBPS/pages/page_0001.xhtml",
		"OEBPS/pages/page_0003.xhtml",
	} {
		if _, ok := files[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
	if _, ok := files["OEBPS/pages/page_0002.xhtml"]; ok {
		t.Error("page 2 was not exported")
	}
	if !strings.Contains(files["OEBPS/pages/page_0001.xhtml"], "<br/>") {
		t.Error("void elements should be self-closed")
	}
	if !strings.Contains(files["OEBPS/content.opf"], "<dc:title>scan</dc:title>") {
		t.Error("missing title metadata")
	}
}

func TestThreePageScenarioExport(t *testing.T) {
	doc := document.New(3)
	if err := doc.MarkProcessing(1); err != nil {
		t.Fatal(err)
	}
	if err := doc.MarkDone(1, "<p>Hello</p>"); err != nil {
		t.Fatal(err)
	}
	if err := doc.MarkProcessing(2); err != nil {
		t.Fatal(err)
	}
	if err := doc.MarkError(2, "failed"); err != nil {
		t.Fatal(err)
	}
	if _, err := doc.SetSelected(3, false); err != nil {
		t.Fatal(err)
	}

	data, err := HTML("scan", doc.Pages())
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Count(out, `class="page-container"`) != 1 || !strings.Contains(out, "<p>Hello</p>") {
		t.Errorf("expected exactly page 1:\n%s", out)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		source string
		format Format
		want   string
	}{
		{"scan.pdf", FormatHTML, "scan_extracted.html"},
		{"Scan.PDF", FormatWord, "Scan_extracted.doc"},
		{"/tmp/uploads/book.pdf", FormatMarkdown, "book_extracted.md"},
		{"notes", FormatEPUB, "notes_extracted.epub"},
		{"", FormatHTML, "document_extracted.html"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := FileName(tt.source, tt.format); got != tt.want {
				t.Errorf("FileName(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"html": FormatHTML, ".doc": FormatWord, "Markdown": FormatMarkdown, "epub": FormatEPUB} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
