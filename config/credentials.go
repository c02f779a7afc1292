package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const credentialFile = "gemini_api_key"

// KeySource resolves the Gemini API key on every call so a key saved while
// the process runs is picked up by the next extraction.
type KeySource struct {
	DataDir string
}

// NewKeySource returns a KeySource for the configured data directory.
func (c *Config) NewKeySource() *KeySource {
	return &KeySource{DataDir: c.Storage.DataDir}
}

// APIKey returns GEMINI_API_KEY, the contents of GEMINI_API_KEY_FILE, or the
// saved credential, in that order. An empty string means no key is configured.
func (k *KeySource) APIKey() string {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key
	}
	if file := os.Getenv("GEMINI_API_KEY_FILE"); file != "" {
		if data, err := os.ReadFile(file); err == nil {
			if key := strings.TrimSpace(string(data)); key != "" {
				return key
			}
		}
	}
	data, err := os.ReadFile(k.path())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Save stores key in the data directory, readable only by the current user.
func (k *KeySource) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key is empty")
	}
	if err := os.MkdirAll(k.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(k.path(), []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	return nil
}

// Clear removes the saved key.
func (k *KeySource) Clear() error {
	if err := os.Remove(k.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove API key: %w", err)
	}
	return nil
}

func (k *KeySource) path() string {
	return filepath.Join(k.DataDir, credentialFile)
}
