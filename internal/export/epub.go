package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jackzampolin/folio/internal/document"
)

// EPUB packages the pages as an ePub 3 book with one XHTML file per page.
func EPUB(title string, pages []document.Page) ([]byte, error) {
	pages, err := selectPages(pages)
	if err != nil {
		return nil, err
	}

	b := &epubBuilder{
		id:       "urn:uuid:" + uuid.New().String(),
		title:    title,
		pages:    pages,
		modified: time.Now().UTC(),
	}
	var buf bytes.Buffer
	if err := b.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type epubBuilder struct {
	id       string
	title    string
	pages    []document.Page
	modified time.Time
}

func (b *epubBuilder) writeTo(buf *bytes.Buffer) error {
	zw := zip.NewWriter(buf)

	// mimetype must be the first entry and stored uncompressed.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("failed to create mimetype: %w", err)
	}
	if _, err := w.Write([]byte("application/epub+zip")); err != nil {
		return err
	}

	files := []epubFile{
		{"META-INF/container.xml", func() (string, error) { return epubContainer, nil }},
		{"OEBPS/content.opf", func() (string, error) { return b.packageDocument(), nil }},
		{"OEBPS/nav.xhtml", func() (string, error) { return b.navigation(), nil }},
		{"OEBPS/toc.ncx", func() (string, error) { return b.ncx(), nil }},
		{"OEBPS/styles/style.css", func() (string, error) { return epubStylesheet, nil }},
	}
	for _, p := range b.pages {
		files = append(files, epubFile{
			name:    "OEBPS/pages/" + pageID(p.Number) + ".xhtml",
			content: func() (string, error) { return b.pageXHTML(p) },
		})
	}

	for _, f := range files {
		content, err := f.content()
		if err != nil {
			return err
		}
		w, err := zw.Create(f.name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	return zw.Close()
}

type epubFile struct {
	name    string
	content func() (string, error)
}

func pageID(n int) string {
	return fmt.Sprintf("page_%04d", n)
}

const epubContainer = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func (b *epubBuilder) packageDocument() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
	fmt.Fprintf(&sb, "    <dc:identifier id=\"pub-id\">%s</dc:identifier>\n", b.id)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", escapeXML(b.title))
	sb.WriteString("    <dc:language>vi</dc:language>\n")
	fmt.Fprintf(&sb, "    <meta property=\"dcterms:modified\">%s</meta>\n", b.modified.Format("2006-01-02T15:04:05Z"))
	sb.WriteString("  </metadata>\n  <manifest>\n")
	sb.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	sb.WriteString("    <item id=\"ncx\" href=\"toc.ncx\" media-type=\"application/x-dtbncx+xml\"/>\n")
	sb.WriteString("    <item id=\"style\" href=\"styles/style.css\" media-type=\"text/css\"/>\n")
	for _, p := range b.pages {
		id := pageID(p.Number)
		fmt.Fprintf(&sb, "    <item id=\"%s\" href=\"pages/%s.xhtml\" media-type=\"application/xhtml+xml\"/>\n", id, id)
	}
	sb.WriteString("  </manifest>\n  <spine toc=\"ncx\">\n")
	for _, p := range b.pages {
		fmt.Fprintf(&sb, "    <itemref idref=\"%s\"/>\n", pageID(p.Number))
	}
	sb.WriteString("  </spine>\n</package>\n")
	return sb.String()
}

func (b *epubBuilder) navigation() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
  <title>Contents</title>
  <link rel="stylesheet" type="text/css" href="styles/style.css"/>
</head>
<body>
  <nav epub:type="toc" id="toc">
    <h1>Contents</h1>
    <ol>
`)
	for _, p := range b.pages {
		fmt.Fprintf(&sb, "      <li><a href=\"pages/%s.xhtml\">Page %d</a></li>\n", pageID(p.Number), p.Number)
	}
	sb.WriteString("    </ol>\n  </nav>\n</body>\n</html>\n")
	return sb.String()
}

// ncx is the ePub 2 table of contents, still read by older devices.
func (b *epubBuilder) ncx() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
`)
	fmt.Fprintf(&sb, "    <meta name=\"dtb:uid\" content=\"%s\"/>\n", b.id)
	sb.WriteString("    <meta name=\"dtb:depth\" content=\"1\"/>\n  </head>\n")
	fmt.Fprintf(&sb, "  <docTitle><text>%s</text></docTitle>\n  <navMap>\n", escapeXML(b.title))
	for i, p := range b.pages {
		fmt.Fprintf(&sb, "    <navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", i+1, i+1)
		fmt.Fprintf(&sb, "      <navLabel><text>Page %d</text></navLabel>\n", p.Number)
		fmt.Fprintf(&sb, "      <content src=\"pages/%s.xhtml\"/>\n", pageID(p.Number))
		sb.WriteString("    </navPoint>\n")
	}
	sb.WriteString("  </navMap>\n</ncx>\n")
	return sb.String()
}

func (b *epubBuilder) pageXHTML(p document.Page) (string, error) {
	body, err := toXHTML(pageBody(p))
	if err != nil {
		return "", fmt.Errorf("failed to convert page %d: %w", p.Number, err)
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
`)
	fmt.Fprintf(&sb, "  <title>%s - Page %d</title>\n", escapeXML(b.title), p.Number)
	sb.WriteString("  <link rel=\"stylesheet\" type=\"text/css\" href=\"../styles/style.css\"/>\n</head>\n<body>\n")
	fmt.Fprintf(&sb, "<p class=\"page-header\">--- Page %d ---</p>\n", p.Number)
	sb.WriteString(body)
	sb.WriteString("\n</body>\n</html>\n")
	return sb.String(), nil
}

// toXHTML reparses an HTML fragment so that void elements are self-closed
// and every element is balanced.
func toXHTML(fragment string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

const epubStylesheet = `body {
  font-family: Georgia, "Times New Roman", serif;
  line-height: 1.6;
  margin: 1em;
  text-align: justify;
}

h1, h2, h3, h4, h5, h6 {
  font-weight: bold;
  margin-top: 1em;
  margin-bottom: 0.5em;
  text-align: left;
}

table {
  border-collapse: collapse;
  width: 100%;
}

th, td {
  border: 1px solid #000;
  padding: 4px;
}

.page-header {
  color: #888;
  font-size: 0.9em;
  text-align: center;
}
`
