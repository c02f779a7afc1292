package structured

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/pageza/recipebox/internal/model"
)

var (
	ogImageSelector      = cascadia.MustCompile(`meta[property="og:image"]`)
	twitterImageSelector = cascadia.MustCompile(`meta[name="twitter:image"], meta[property="twitter:image"]`)
	siteNameSelector     = cascadia.MustCompile(`meta[property="og:site_name"]`)

	// Likely recipe-content containers, most specific first.
	contentImageSelectors = []cascadia.Selector{
		cascadia.MustCompile(`.recipe img`),
		cascadia.MustCompile(`[class*="recipe"] img`),
		cascadia.MustCompile(`[itemprop="image"]`),
		cascadia.MustCompile(`article img`),
		cascadia.MustCompile(`.entry-content img`),
		cascadia.MustCompile(`main img`),
	}

	decorativeImage = regexp.MustCompile(`(?i)logo|icon|avatar|sprite`)
)

// ResolveImage picks the preview image for a page, trying og:image, the
// structured data image, twitter:image and then content images. Relative URLs
// are resolved against pageURL; the placeholder is returned when nothing resolves.
func ResolveImage(doc *html.Node, r *Recipe, pageURL string) string {
	var candidates []string
	if doc != nil {
		candidates = append(candidates, metaContent(doc, ogImageSelector))
	}
	if r != nil {
		candidates = append(candidates, r.Images...)
	}
	if doc != nil {
		candidates = append(candidates, metaContent(doc, twitterImageSelector))
		candidates = append(candidates, contentImage(doc))
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if abs, ok := resolveURL(pageURL, c); ok {
			return abs
		}
	}
	return model.PlaceholderImage
}

func metaContent(doc *html.Node, sel cascadia.Selector) string {
	n := sel.MatchFirst(doc)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

func contentImage(doc *html.Node) string {
	for _, sel := range contentImageSelectors {
		for _, n := range sel.MatchAll(doc) {
			src := attr(n, "src")
			if src == "" {
				src = attr(n, "data-src")
			}
			if src == "" && n.Data == "meta" {
				src = attr(n, "content")
			}
			src = strings.TrimSpace(src)
			if src == "" || decorativeImage.MatchString(src) {
				continue
			}
			return src
		}
	}
	return ""
}

func resolveURL(base, ref string) (string, bool) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if r.IsAbs() {
		if r.Scheme != "http" && r.Scheme != "https" {
			return "", false
		}
		return r.String(), true
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
