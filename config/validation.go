package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pageza/recipebox/internal/fetch"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// ValidateConfig checks the configuration and reports every problem at once
func ValidateConfig(cfg *Config) error {
	var errors []string
	add := func(field, msg string) {
		errors = append(errors, ValidationError{Field: field, Message: msg}.Error())
	}

	if cfg.Server.Host == "" {
		add("server.host", "must not be empty")
	}
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port <= 0 || port > 65535 {
		add("server.port", fmt.Sprintf("invalid port %q", cfg.Server.Port))
	}
	if cfg.Server.ExtractionsPerHour < 0 {
		add("server.extractions_per_hour", "must not be negative")
	}
	if cfg.Storage.DBPath == "" {
		add("storage.db_path", "must not be empty")
	}
	if cfg.Gemini.APIURL == "" {
		add("gemini.api_url", "must not be empty")
	}
	if cfg.Gemini.Model == "" {
		add("gemini.model", "must not be empty")
	}
	if cfg.Gemini.TimeoutSeconds <= 0 {
		add("gemini.timeout_seconds", "must be positive")
	}

	if _, err := fetch.ParseClientClass(cfg.Fetch.ClientClass); err != nil {
		add("fetch.client_class", "must be desktop or constrained")
	}
	if cfg.Fetch.DirectTimeoutSeconds <= 0 || cfg.Fetch.ProxyTimeoutSeconds <= 0 || cfg.Fetch.ConstrainedProxyTimeoutSeconds <= 0 {
		add("fetch", "timeouts must be positive")
	}
	if cfg.Fetch.RetryDelayMillis < 0 {
		add("fetch.retry_delay_millis", "must not be negative")
	}
	if cfg.Fetch.CacheSize < 0 {
		add("fetch.cache_size", "must not be negative")
	}
	validateProxies("fetch.desktop_proxies", cfg.Fetch.DesktopProxies, add)
	validateProxies("fetch.constrained_proxies", cfg.Fetch.ConstrainedProxies, add)

	if cfg.Extraction.FallbackTimeoutSeconds <= 0 {
		add("extraction.fallback_timeout_seconds", "must be positive")
	}
	if !validLogLevels[cfg.Logging.Level] {
		add("logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level))
	}
	if f := strings.ToLower(cfg.Logging.Format); f != "" && f != "text" && f != "json" {
		add("logging.format", "must be text or json")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func validateProxies(field string, proxies []fetch.Proxy, add func(string, string)) {
	if len(proxies) == 0 {
		add(field, "at least one proxy is required")
	}
	for i, p := range proxies {
		name := fmt.Sprintf("%s[%d]", field, i)
		if p.Name == "" {
			add(name, "name must not be empty")
		}
		if !strings.Contains(p.URL, "{url}") && !strings.Contains(p.URL, "{rawurl}") {
			add(name, "url must contain {url} or {rawurl}")
		}
		if p.Format != fetch.FormatJSON && p.Format != fetch.FormatRaw {
			add(name, "format must be json or raw")
		}
	}
}
