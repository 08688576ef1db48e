package providers

import (
	"fmt"
	"strings"
)

// NoContentPlaceholder replaces empty recognition output and is what the
// prompt asks for on blank or unreadable pages.
const NoContentPlaceholder = "<p><i>(no text found)</i></p>"

// Prompt builds the recognition instruction. An empty targetLanguage means
// OCR only.
func Prompt(targetLanguage string) string {
	task := "Transcribe all text on this page exactly as written, in its original language."
	if targetLanguage != "" {
		task = fmt.Sprintf("Read all text on this page and translate ALL of it into %s. "+
			"The translation must read naturally and keep the meaning of the original in context.", targetLanguage)
	}

	var b strings.Builder
	b.WriteString("You are an expert in OCR, document layout and multilingual translation. ")
	b.WriteString("The image is one page of a scanned PDF document.\n\n")
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "1. %s\n", task)
	b.WriteString("2. Preserve the structure of the page with semantic HTML: <h1>-<h6> for headings, <p> for paragraphs, <table> for tables, <ul>/<ol> with <li> for lists.\n")
	b.WriteString("3. Do NOT use <html>, <head> or <body>. Return only the body content.\n")
	b.WriteString("4. Do NOT wrap the output in markdown code fences. Return raw HTML.\n")
	fmt.Fprintf(&b, "5. If the page is blank or too blurry to read, return exactly %s\n", NoContentPlaceholder)
	if targetLanguage != "" {
		b.WriteString("6. Translate only visible text. Never translate or change tag names, attributes, classes or ids.\n")
	}
	return b.String()
}
