package providers

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain fragment",
			raw:  "<h1>Title</h1><p>Body</p>",
			want: "<h1>Title</h1><p>Body</p>",
		},
		{
			name: "code fence",
			raw:  "```html\n<p>Xin chào</p>\n```",
			want: "<p>Xin chào</p>",
		},
		{
			name: "bare code fence",
			raw:  "```\n<p>text</p>\n```\n",
			want: "<p>text</p>",
		},
		{
			name: "full document",
			raw:  "<!DOCTYPE html><html><head><title>x</title></head><body><p>Hi</p></body></html>",
			want: "<p>Hi</p>",
		},
		{
			name: "script removed",
			raw:  "<p>a</p><script>alert(1)</script>",
			want: "<p>a</p>",
		},
		{
			name: "empty",
			raw:  "",
			want: NoContentPlaceholder,
		},
		{
			name: "whitespace only",
			raw:  "  \n\t ",
			want: NoContentPlaceholder,
		},
		{
			name: "empty fence",
			raw:  "```html\n```",
			want: NoContentPlaceholder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize("test", tt.raw)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeErrorMarkers(t *testing.T) {
	for _, raw := range []string{
		"<p>Error processing this page</p>",
		"<p>Lỗi khi xử lý trang này</p>",
		`{"error": {"message": "quota exceeded"}}`,
	} {
		_, err := Normalize("test", raw)
		var ce *ContentError
		if !errors.As(err, &ce) {
			t.Errorf("Normalize(%q) error = %v, want ContentError", raw, err)
		}
		if IsPermanent(err) {
			t.Errorf("Normalize(%q) error should be retryable", raw)
		}
	}

	t.Run("ordinary use of the word error", func(t *testing.T) {
		got, err := Normalize("test", "<p>Trial and error is how we learn.</p>")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(got, "Trial and error") {
			t.Errorf("unexpected content: %q", got)
		}
	})

	t.Run("custom markers", func(t *testing.T) {
		n := NewNormalizer([]string{"SORRY"})
		if _, err := n.Normalize("test", "<p>sorry, I cannot read this</p>"); err == nil {
			t.Error("expected error for custom marker")
		}
		if _, err := n.Normalize("test", "<p>Error processing this page</p>"); err != nil {
			t.Errorf("default marker should not apply: %v", err)
		}
	})
}

func TestPrompt(t *testing.T) {
	t.Run("ocr only", func(t *testing.T) {
		p := Prompt("")
		if !strings.Contains(p, "original language") {
			t.Errorf("ocr prompt should ask for the original language: %q", p)
		}
		if strings.Contains(p, "translate ALL") {
			t.Error("ocr prompt should not ask for translation")
		}
		if !strings.Contains(p, NoContentPlaceholder) {
			t.Error("prompt should name the placeholder")
		}
	})

	t.Run("translation", func(t *testing.T) {
		p := Prompt("French")
		if !strings.Contains(p, "translate ALL of it into French") {
			t.Errorf("unexpected prompt: %q", p)
		}
		if !strings.Contains(p, "Never translate or change tag names") {
			t.Error("translation prompt should protect markup")
		}
	})
}
