package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// TextFromHTML extracts the readable text of an HTML document, dropping
// scripts, styles and other non-visible elements and collapsing whitespace.
// The result is truncated to maxLength bytes when maxLength > 0.
func TextFromHTML(rawHTML string, maxLength int) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var words []string
	collectText(doc, &words)
	text := strings.Join(words, " ")

	if maxLength > 0 && len(text) > maxLength {
		text = truncateUTF8(text, maxLength)
	}
	return text, nil
}

func collectText(n *html.Node, words *[]string) {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if isSkippedElement(strings.ToLower(n.Data)) {
			return
		}
	case html.TextNode:
		*words = append(*words, strings.Fields(n.Data)...)
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, words)
	}
}

func isSkippedElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "svg", "head", "iframe":
		return true
	}
	return false
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
