package document

import "testing"

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"whitespace", "  \n\t", 0},
		{"plain", "one two three", 3},
		{"tags are boundaries", "<b>foo</b>bar", 2},
		{"nested", "<table><tr><td>a b</td><td>c</td></tr></table>", 3},
		{"entities", "<p>fish &amp; chips</p>", 3},
		{"script ignored", "<p>x</p><script>var a = 1;</script>", 1},
		{"placeholder", "<p><i>(no text found)</i></p>", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.in); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
