package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty input", "", ""},
		{"plain reply", "I grew up in a small town.", "I grew up in a small town.\n"},
		{"bold", "**Pattern recognition**", "<strong>Pattern recognition</strong>\n"},
		{"italic", "*calm*", "<em>calm</em>\n"},
		{"strikethrough", "~~never~~", "<del>never</del>\n"},
		{"inline code", "`go test`", "<code>go test</code>\n"},
		{"code block with language", "```go\nfunc main() {}\n```", "<pre><code class=\"language-go\">func main() {}\n</code></pre>\n"},
		{"blockquote", "> quote", "<blockquote>\nquote\n</blockquote>\n"},
		{"link keeps href only", "[site](https://example.com)", "<a href=\"https://example.com\">site</a>\n"},
		{"headers stripped", "# About me", "About me\n"},
		{"script sanitized", "<script>alert('xss')</script>", "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MarkdownToTelegramHTML([]byte(tt.input)))
		})
	}
}
