package document

import (
	"strings"

	"golang.org/x/net/html"
)

// CountWords returns the number of whitespace-separated words in the text
// content of an HTML fragment. Tags act as word boundaries.
func CountWords(fragment string) int {
	if strings.TrimSpace(fragment) == "" {
		return 0
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	count := 0
	var skip int // depth inside <script>/<style>
	for {
		switch z.Next() {
		case html.ErrorToken:
			return count
		case html.StartTagToken:
			if isRawText(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawText(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				count += len(strings.Fields(string(z.Text())))
			}
		}
	}
}

func isRawText(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
