package export

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/jackzampolin/folio/internal/document"
)

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// Markdown converts each page to Markdown under a "## Page N" heading.
func Markdown(title string, pages []document.Page) ([]byte, error) {
	pages, err := selectPages(pages)
	if err != nil {
		return nil, err
	}

	conv := newMarkdownConverter()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", title)
	for _, p := range pages {
		md, err := conv.ConvertString(pageBody(p))
		if err != nil {
			return nil, fmt.Errorf("failed to convert page %d to markdown: %w", p.Number, err)
		}
		fmt.Fprintf(&sb, "\n## Page %d\n\n", p.Number)
		sb.WriteString(strings.TrimSpace(md))
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}
