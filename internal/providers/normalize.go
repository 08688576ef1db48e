package providers

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultErrorMarkers are substrings that identify a response which reports
// a failure in its body instead of through the transport.
var DefaultErrorMarkers = []string{
	"Error processing this page",
	"Lỗi khi xử lý trang này",
	`{"error"`,
}

var (
	fenceOpen  = regexp.MustCompile("(?is)^```[a-z]*\\s*")
	fenceClose = regexp.MustCompile("(?s)\\s*```\\s*$")
	bodyInner  = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)
	doctype    = regexp.MustCompile(`(?is)<!doctype[^>]*>`)
)

// Normalizer cleans raw model output into a displayable HTML fragment.
type Normalizer struct {
	markers []string
	policy  *bluemonday.Policy
}

// NewNormalizer creates a Normalizer. A nil markers slice uses DefaultErrorMarkers.
func NewNormalizer(markers []string) *Normalizer {
	if markers == nil {
		markers = DefaultErrorMarkers
	}
	return &Normalizer{
		markers: markers,
		policy:  bluemonday.UGCPolicy(),
	}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize cleans raw output with the default markers.
func Normalize(provider, raw string) (string, error) {
	return defaultNormalizer.Normalize(provider, raw)
}

// Normalize strips code fences and document wrappers, rejects responses that
// carry an error marker, sanitizes the markup and maps empty output to
// NoContentPlaceholder.
func (n *Normalizer) Normalize(provider, raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")

	if m := bodyInner.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = doctype.ReplaceAllString(text, "")

	lower := strings.ToLower(text)
	for _, marker := range n.markers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return "", &ContentError{Provider: provider, Reason: "response contains error marker " + marker}
		}
	}

	text = strings.TrimSpace(n.policy.Sanitize(text))
	if text == "" {
		return NoContentPlaceholder, nil
	}
	return text, nil
}
