package fetch

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ClientClass selects fetch behaviour for a kind of client.
type ClientClass string

const (
	// Desktop clients go straight to the relay proxies.
	Desktop ClientClass = "desktop"
	// Constrained clients (mobile, Safari-class) try a direct fetch first and get longer proxy timeouts.
	Constrained ClientClass = "constrained"
)

var constrainedUA = regexp.MustCompile(`(?i)iphone|ipad|ipod|android|mobile|silk|kindle`)

// ClassifyUserAgent maps a User-Agent header to a client class. Mobile
// browsers and Safari (without a Chromium marker) are constrained.
func ClassifyUserAgent(ua string) ClientClass {
	if constrainedUA.MatchString(ua) {
		return Constrained
	}
	lower := strings.ToLower(ua)
	if strings.Contains(lower, "safari") && !strings.Contains(lower, "chrome") &&
		!strings.Contains(lower, "chromium") && !strings.Contains(lower, "edg") {
		return Constrained
	}
	return Desktop
}

// ParseClientClass accepts "desktop" or "constrained".
func ParseClientClass(s string) (ClientClass, error) {
	switch ClientClass(strings.ToLower(strings.TrimSpace(s))) {
	case Desktop:
		return Desktop, nil
	case Constrained:
		return Constrained, nil
	}
	return "", fmt.Errorf("unknown client class %q", s)
}

// Response formats a relay can return.
const (
	FormatJSON = "json"
	FormatRaw  = "raw"
)

// Proxy is a content relay endpoint. URL is a template: {url} is replaced by the
// query-escaped target and {rawurl} by the target unchanged.
type Proxy struct {
	Name   string `toml:"name" json:"name"`
	URL    string `toml:"url" json:"url"`
	Format string `toml:"format" json:"format"`
	Field  string `toml:"field" json:"field,omitempty"`
}

// Endpoint expands the template for target.
func (p Proxy) Endpoint(target string) string {
	r := strings.NewReplacer("{url}", url.QueryEscape(target), "{rawurl}", target)
	return r.Replace(p.URL)
}

// Extract pulls page content out of a relay response body.
func (p Proxy) Extract(body []byte) (string, error) {
	if p.Format != FormatJSON {
		return string(body), nil
	}
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("invalid json envelope: %w", err)
	}
	field := p.Field
	if field == "" {
		field = "contents"
	}
	content, ok := envelope[field].(string)
	if !ok {
		return "", fmt.Errorf("envelope has no %q field", field)
	}
	return content, nil
}

// DefaultDesktopProxies is the relay order for desktop clients.
func DefaultDesktopProxies() []Proxy {
	return []Proxy{
		{Name: "allorigins", URL: "https://api.allorigins.win/get?url={url}", Format: FormatJSON, Field: "contents"},
		{Name: "corsproxy", URL: "https://corsproxy.io/?url={url}", Format: FormatRaw},
		{Name: "codetabs", URL: "https://api.codetabs.com/v1/proxy?quest={url}", Format: FormatRaw},
	}
}

// DefaultConstrainedProxies is the relay order for constrained clients, most reliable first.
func DefaultConstrainedProxies() []Proxy {
	return []Proxy{
		{Name: "corsproxy", URL: "https://corsproxy.io/?url={url}", Format: FormatRaw},
		{Name: "allorigins", URL: "https://api.allorigins.win/get?url={url}", Format: FormatJSON, Field: "contents"},
		{Name: "codetabs", URL: "https://api.codetabs.com/v1/proxy?quest={url}", Format: FormatRaw},
	}
}
