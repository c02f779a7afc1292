package fetch

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want ClientClass
	}{
		{"iphone safari", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", Constrained},
		{"android chrome", "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36", Constrained},
		{"mac safari", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15", Constrained},
		{"desktop chrome", BrowserUserAgent, Desktop},
		{"desktop firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", Desktop},
		{"edge", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0", Desktop},
		{"cli", "recipebox/1.0", Desktop},
		{"empty", "", Desktop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyUserAgent(tt.ua))
		})
	}
}

func TestParseClientClass(t *testing.T) {
	c, err := ParseClientClass(" Constrained ")
	require.NoError(t, err)
	assert.Equal(t, Constrained, c)

	c, err = ParseClientClass("desktop")
	require.NoError(t, err)
	assert.Equal(t, Desktop, c)

	_, err = ParseClientClass("tablet")
	assert.Error(t, err)
}

func TestProxyEndpoint(t *testing.T) {
	p := Proxy{URL: "https://relay.example/get?url={url}"}
	assert.Equal(t, "https://relay.example/get?url=https%3A%2F%2Fsite.example%2Fr%3Fid%3D1", p.Endpoint("https://site.example/r?id=1"))

	p = Proxy{URL: "https://relay.example/{rawurl}"}
	assert.Equal(t, "https://relay.example/https://site.example/r", p.Endpoint("https://site.example/r"))
}

func TestProxyExtract(t *testing.T) {
	rawP := Proxy{Format: FormatRaw}
	got, err := rawP.Extract([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	jsonP := Proxy{Format: FormatJSON}
	got, err = jsonP.Extract([]byte(`{"contents":"<p>x</p>"}`))
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", got)

	_, err = jsonP.Extract([]byte(`not json`))
	assert.Error(t, err)

	_, err = Proxy{Format: FormatJSON, Field: "body"}.Extract([]byte(`{"contents":"x"}`))
	assert.Error(t, err)
}

func TestDefaultProxyOrder(t *testing.T) {
	assert.Equal(t, "allorigins", DefaultDesktopProxies()[0].Name)
	assert.Equal(t, "corsproxy", DefaultConstrainedProxies()[0].Name)
}

func TestLRUCache(t *testing.T) {
	c := NewLRUCache(2, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "a", "1")
	c.Set(ctx, "b", "2")
	c.Set(ctx, "c", "3")

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, 2, c.Len())
}

func TestReadable(t *testing.T) {
	html := `<html><head><title>Best Pancakes</title><meta property="og:site_name" content="Kitchen"></head>
<body><article><h1>Best Pancakes</h1>
<p>These pancakes are fluffy and light, perfect for a slow weekend breakfast with family and friends.</p>
<p>Whisk two cups of flour with a tablespoon of sugar, then beat in the eggs and milk until the batter is smooth.</p>
<p>Rest the batter for ten minutes before frying ladlefuls in a hot buttered pan until golden on both sides.</p>
</article></body></html>`

	p := Readable(html, "https://kitchen.example/pancakes")
	assert.Contains(t, p.Text, "Whisk two cups of flour")

	empty := Readable("", "https://kitchen.example")
	assert.Equal(t, "", empty.Text)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes, so the limit lands inside one of them.
	s := "a" + strings.Repeat("é", maxReadableChars)
	out := truncate(s)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, maxReadableChars-1, len(out))

	assert.Equal(t, "short", truncate("short"))
}
