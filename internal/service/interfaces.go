package service

import (
	"context"

	"github.com/pageza/recipebox/internal/fetch"
	"github.com/pageza/recipebox/internal/photo"
)

// RecipeExtractor turns page text or a photo into recipe fields using the model.
type RecipeExtractor interface {
	ExtractFromText(ctx context.Context, apiKey, content string) (*RecipeData, error)
	ExtractFromImage(ctx context.Context, apiKey string, img photo.Image) (*RecipeData, error)
}

// PageFetcher retrieves raw page content.
type PageFetcher interface {
	FetchAs(ctx context.Context, class fetch.ClientClass, rawURL string) (string, error)
	Class() fetch.ClientClass
}

// CredentialSource returns the current API key, or "" when none is configured.
type CredentialSource interface {
	APIKey() string
}

// ConnectivityChecker reports whether the device is online.
type ConnectivityChecker interface {
	Online(ctx context.Context) bool
}

// FallbackDecider asks the user whether to run offline recognition after the
// model failed. reason is the user-facing failure message.
type FallbackDecider interface {
	AuthorizeFallback(ctx context.Context, reason string) bool
}

var (
	_ RecipeExtractor     = (*LLMService)(nil)
	_ PageFetcher         = (*fetch.Fetcher)(nil)
	_ RecipeStore         = (*RecipeService)(nil)
	_ CredentialSource    = CredentialFunc(nil)
	_ ConnectivityChecker = (*fetch.OnlineProbe)(nil)
)

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func() string

func (f CredentialFunc) APIKey() string { return f() }

// ConnectivityFunc adapts a function to ConnectivityChecker.
type ConnectivityFunc func(ctx context.Context) bool

func (f ConnectivityFunc) Online(ctx context.Context) bool { return f(ctx) }

// AlwaysOnline treats the device as connected; failed requests surface as
// NetworkUnavailable instead.
var AlwaysOnline ConnectivityChecker = ConnectivityFunc(func(context.Context) bool { return true })

// DeciderFunc adapts a function to FallbackDecider.
type DeciderFunc func(ctx context.Context, reason string) bool

func (f DeciderFunc) AuthorizeFallback(ctx context.Context, reason string) bool { return f(ctx, reason) }

// DeclineFallback never authorizes the offline fallback.
var DeclineFallback FallbackDecider = DeciderFunc(func(context.Context, string) bool { return false })
