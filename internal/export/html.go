package export

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/folio/internal/document"
)

// HTML builds a standalone web page with one container per page.
func HTML(title string, pages []document.Page) ([]byte, error) {
	pages, err := selectPages(pages)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html>
<html lang="vi">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>`)
	sb.WriteString(escapeXML(title))
	sb.WriteString(` - Extracted Content</title>
<style>`)
	sb.WriteString(commonCSS)
	sb.WriteString(`  body { max-width: 800px; margin: 0 auto; padding: 40px; }
  .page-container { margin-bottom: 50px; border-bottom: 1px dashed #ccc; padding-bottom: 20px; }
  .page-header { color: #888; font-size: 0.9em; margin-bottom: 20px; text-align: center; }
  @media print {
    .page-container { page-break-after: always; border-bottom: none; }
  }
</style>
</head>
<body>
`)

	for _, p := range pages {
		fmt.Fprintf(&sb, "  <div class=\"page-container\" id=\"page-%d\">\n", p.Number)
		fmt.Fprintf(&sb, "    <div class=\"page-header\">--- Page %d ---</div>\n", p.Number)
		sb.WriteString("    <div class=\"page-content\">\n")
		sb.WriteString(pageBody(p))
		sb.WriteString("\n    </div>\n  </div>\n")
	}

	sb.WriteString("</body>\n</html>\n")
	return []byte(sb.String()), nil
}
