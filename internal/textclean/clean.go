// Package textclean normalises scraped page text before it is sent to the model.
package textclean

import (
	"regexp"
	"strings"
)

var (
	tagRe = regexp.MustCompile(`<[^>]*?>`)
	urlRe = regexp.MustCompile(`https?://\S+`)
	// Letters, digits and the punctuation that appears in technology names (C++, C#, Node.js, CI/CD).
	symbolRe = regexp.MustCompile(`[^\p{L}\p{N}\s+#./\-]`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Clean strips HTML tags, URLs and decorative symbols and collapses whitespace.
func Clean(text string) string {
	text = tagRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, " ")
	text = symbolRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
