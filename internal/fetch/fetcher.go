// Package fetch retrieves recipe pages directly or through content relays.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/logger"
	"github.com/pageza/recipebox/internal/metrics"
)

const (
	// maxBodySize caps a single response (10MB).
	maxBodySize = 10 * 1024 * 1024

	// BrowserUserAgent is sent when user agent spoofing is enabled.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	directRoute = "direct"
)

// Options configures a Fetcher.
type Options struct {
	Class                   ClientClass
	DesktopProxies          []Proxy
	ConstrainedProxies      []Proxy
	DirectTimeout           time.Duration
	ProxyTimeout            time.Duration
	ConstrainedProxyTimeout time.Duration
	RetryDelay              time.Duration
	SpoofUserAgent          bool
	HTTPClient              *http.Client
	Cache                   Cache
}

// DefaultOptions returns the stock proxy lists and timeouts.
func DefaultOptions() Options {
	return Options{
		Class:                   Desktop,
		DesktopProxies:          DefaultDesktopProxies(),
		ConstrainedProxies:      DefaultConstrainedProxies(),
		DirectTimeout:           8 * time.Second,
		ProxyTimeout:            10 * time.Second,
		ConstrainedProxyTimeout: 15 * time.Second,
		RetryDelay:              500 * time.Millisecond,
		SpoofUserAgent:          true,
	}
}

// Fetcher returns page content for a URL.
type Fetcher struct {
	opts   Options
	client *http.Client
}

// New creates a Fetcher. A nil HTTPClient uses a client without a cookie jar.
func New(opts Options) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if opts.Class == "" {
		opts.Class = Desktop
	}
	return &Fetcher{opts: opts, client: client}
}

// Class returns the configured client class.
func (f *Fetcher) Class() ClientClass {
	return f.opts.Class
}

// Fetch retrieves rawURL for the configured client class.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	return f.FetchAs(ctx, f.opts.Class, rawURL)
}

// FetchAs retrieves rawURL using the behaviour of class. It returns content or
// an apperr.NetworkUnavailable error; partial results are never returned.
func (f *Fetcher) FetchAs(ctx context.Context, class ClientClass, rawURL string) (string, error) {
	log := logger.FromContext(ctx)

	if f.opts.Cache != nil {
		if content, ok := f.opts.Cache.Get(ctx, rawURL); ok {
			metrics.PageCacheLookups.WithLabelValues(metrics.ResultHit).Inc()
			log.Debug("Page cache hit", "url", rawURL)
			return content, nil
		}
		metrics.PageCacheLookups.WithLabelValues(metrics.ResultMiss).Inc()
	}

	content, err := f.fetch(ctx, class, rawURL)
	if err != nil {
		return "", err
	}
	if f.opts.Cache != nil {
		f.opts.Cache.Set(ctx, rawURL, content)
	}
	return content, nil
}

func (f *Fetcher) fetch(ctx context.Context, class ClientClass, rawURL string) (string, error) {
	log := logger.FromContext(ctx)

	proxies := f.opts.DesktopProxies
	timeout := f.opts.ProxyTimeout
	if class == Constrained {
		proxies = f.opts.ConstrainedProxies
		timeout = f.opts.ConstrainedProxyTimeout

		content, err := f.get(ctx, rawURL, f.opts.DirectTimeout)
		if err == nil {
			metrics.ProxyAttempts.WithLabelValues(directRoute, metrics.OutcomeSuccess).Inc()
			return content, nil
		}
		metrics.ProxyAttempts.WithLabelValues(directRoute, metrics.OutcomeFailure).Inc()
		log.Info("Direct fetch failed, falling back to proxies", "url", rawURL, "error", err)
	}

	for i, p := range proxies {
		if err := ctx.Err(); err != nil {
			return "", apperr.Wrap(apperr.NetworkUnavailable, err)
		}

		content, err := f.viaProxy(ctx, p, rawURL, timeout)
		if err == nil {
			metrics.ProxyAttempts.WithLabelValues(p.Name, metrics.OutcomeSuccess).Inc()
			log.Debug("Fetched page via proxy", "proxy", p.Name, "url", rawURL)
			return content, nil
		}
		metrics.ProxyAttempts.WithLabelValues(p.Name, metrics.OutcomeFailure).Inc()
		log.Warn("Proxy fetch failed", "proxy", p.Name, "url", rawURL, "error", err)

		if i < len(proxies)-1 && f.opts.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return "", apperr.Wrap(apperr.NetworkUnavailable, ctx.Err())
			case <-time.After(f.opts.RetryDelay):
			}
		}
	}

	return "", exhaustedError(class)
}

func exhaustedError(class ClientClass) error {
	if class == Constrained {
		return apperr.Newf(apperr.NetworkUnavailable,
			"This recipe site could not be loaded on your device. Mobile browsers are often blocked by recipe sites; try taking a photo of the recipe instead.")
	}
	return apperr.Newf(apperr.NetworkUnavailable,
		"This recipe site could not be loaded through any available proxy. The site may be blocking access; try the photo option instead.")
}

func (f *Fetcher) viaProxy(ctx context.Context, p Proxy, rawURL string, timeout time.Duration) (string, error) {
	body, err := f.get(ctx, p.Endpoint(rawURL), timeout)
	if err != nil {
		return "", err
	}
	content, err := p.Extract([]byte(body))
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", errors.New("empty response")
	}
	return content, nil
}

func (f *Fetcher) get(ctx context.Context, target string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if f.opts.SpoofUserAgent {
		req.Header.Set("User-Agent", BrowserUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) == 0 {
		return "", errors.New("empty response")
	}
	return string(body), nil
}
