package export

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/folio/internal/document"
)

// utf8BOM makes Word detect the encoding of the HTML payload.
const utf8BOM = "\ufeff"

const wordPageBreak = `<br clear=all style='mso-special-character:line-break;page-break-before:always'>`

// Word builds an HTML document that Microsoft Word opens as a .doc file:
// A4 portrait, one WordSection per page, a hard page break between pages.
func Word(title string, pages []document.Page) ([]byte, error) {
	pages, err := selectPages(pages)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(utf8BOM)
	sb.WriteString(`<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>
<head>
<meta charset="utf-8">
<title>`)
	sb.WriteString(escapeXML(title))
	sb.WriteString(`</title>
<style>`)
	sb.WriteString(commonCSS)
	sb.WriteString(`  @page { mso-page-orientation: portrait; size: 21cm 29.7cm; margin: 2.54cm; }
</style>
</head><body>
`)

	for i, p := range pages {
		if i > 0 {
			sb.WriteString(wordPageBreak)
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "<div class=\"WordSection%d\">\n", p.Number)
		fmt.Fprintf(&sb, "<p style=\"text-align: center; color: #888; font-size: 10pt;\">--- Page %d ---</p>\n", p.Number)
		sb.WriteString(pageBody(p))
		sb.WriteString("\n</div>\n")
	}

	sb.WriteString("</body></html>")
	return []byte(sb.String()), nil
}
