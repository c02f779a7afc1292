package fetch

import (
	"net/url"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

// maxReadableChars bounds the text handed to the model.
const maxReadableChars = 60000

// Page is the readable view of a fetched document.
type Page struct {
	Title    string
	SiteName string
	Text     string
}

// Readable extracts the main article text from html. When readability finds
// nothing useful the raw html is returned as the text so the model still sees the page.
func Readable(html, pageURL string) Page {
	u, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return Page{Text: truncate(html)}
	}
	return Page{
		Title:    strings.TrimSpace(article.Title),
		SiteName: strings.TrimSpace(article.SiteName),
		Text:     truncate(strings.TrimSpace(article.TextContent)),
	}
}

func truncate(s string) string {
	if len(s) <= maxReadableChars {
		return s
	}
	return s[:runeBoundary(s, maxReadableChars)]
}

// runeBoundary steps n back to the start of the rune it falls inside.
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
