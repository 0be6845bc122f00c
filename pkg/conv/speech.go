package conv

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown/html"
	"github.com/inbucket/html2text"
)

var blankLines = regexp.MustCompile(`\n{2,}`)

// MarkdownToSpeech flattens a markdown reply into plain sentences for a
// text-to-speech engine. Formatting marks, link targets and code fences are
// dropped; paragraphs are joined with a single newline.
func MarkdownToSpeech(md string) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}

	rendered := render([]byte(md), html.FlagsNone)

	text, err := html2text.FromString(string(rendered), html2text.Options{
		OmitLinks: true,
		TextOnly:  true,
	})
	if err != nil {
		return md
	}

	return blankLines.ReplaceAllString(strings.TrimSpace(text), "\n")
}
