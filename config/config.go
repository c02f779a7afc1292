package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/pageza/recipebox/internal/fetch"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Gemini     GeminiConfig     `toml:"gemini"`
	Fetch      FetchConfig      `toml:"fetch"`
	Extraction ExtractionConfig `toml:"extraction"`
	OCR        OCRConfig        `toml:"ocr"`
	Camera     CameraConfig     `toml:"camera"`
	Backup     BackupConfig     `toml:"backup"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ServerConfig configures the local API.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        string   `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// ExtractionsPerHour caps extraction requests per client; 0 disables the limit.
	ExtractionsPerHour int `toml:"extractions_per_hour"`
}

// StorageConfig locates the recipe database and optional shared cache.
type StorageConfig struct {
	DataDir  string `toml:"data_dir"`
	DBPath   string `toml:"db_path"`
	RedisURL string `toml:"redis_url"`
}

// GeminiConfig configures the extraction model. The API key itself is never
// read from the config file; see KeySource.
type GeminiConfig struct {
	APIURL         string `toml:"api_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// FetchConfig configures page acquisition.
type FetchConfig struct {
	ClientClass                    string        `toml:"client_class"`
	DirectTimeoutSeconds           int           `toml:"direct_timeout_seconds"`
	ProxyTimeoutSeconds            int           `toml:"proxy_timeout_seconds"`
	ConstrainedProxyTimeoutSeconds int           `toml:"constrained_proxy_timeout_seconds"`
	RetryDelayMillis               int           `toml:"retry_delay_millis"`
	SpoofUserAgent                 bool          `toml:"spoof_user_agent"`
	CacheSize                      int           `toml:"cache_size"`
	CacheTTLMinutes                int           `toml:"cache_ttl_minutes"`
	DesktopProxies                 []fetch.Proxy `toml:"desktop_proxies"`
	ConstrainedProxies             []fetch.Proxy `toml:"constrained_proxies"`
}

// ExtractionConfig configures the extraction cascade.
type ExtractionConfig struct {
	FallbackTimeoutSeconds int `toml:"fallback_timeout_seconds"`
}

// OCRConfig configures the offline text recognizer.
type OCRConfig struct {
	TesseractPath string `toml:"tesseract_path"`
	Language      string `toml:"language"`
}

// CameraConfig configures live capture.
type CameraConfig struct {
	Command string `toml:"command"`
}

// BackupConfig configures the optional S3 export target.
type BackupConfig struct {
	S3Bucket string `toml:"s3_bucket"`
	S3Prefix string `toml:"s3_prefix"`
	Region   string `toml:"region"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

const (
	defaultConfigPath = "~/.config/recipebox/config.toml"
	defaultDataDir    = "~/.local/share/recipebox"
	defaultDBName     = "recipes.db"
	defaultGeminiURL  = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel      = "gemini-1.5-flash"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               "8787",
			CORSOrigins:        []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			ExtractionsPerHour: 60,
		},
		Storage: StorageConfig{DataDir: defaultDataDir},
		Gemini: GeminiConfig{
			APIURL:         defaultGeminiURL,
			Model:          defaultModel,
			TimeoutSeconds: 60,
		},
		Fetch: FetchConfig{
			ClientClass:                    string(fetch.Desktop),
			DirectTimeoutSeconds:           8,
			ProxyTimeoutSeconds:            10,
			ConstrainedProxyTimeoutSeconds: 15,
			RetryDelayMillis:               500,
			SpoofUserAgent:                 true,
			CacheSize:                      64,
			CacheTTLMinutes:                30,
			DesktopProxies:                 fetch.DefaultDesktopProxies(),
			ConstrainedProxies:             fetch.DefaultConstrainedProxies(),
		},
		Extraction: ExtractionConfig{FallbackTimeoutSeconds: 120},
		OCR:        OCRConfig{TesseractPath: "tesseract", Language: "eng"},
		Backup:     BackupConfig{S3Prefix: "recipebox/"},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// LoadConfig reads an optional TOML file at path (or the default location),
// applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	env := GetEnvironment()

	switch env {
	case Development, Test:
		if err := loadDotEnv(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	case CI, Production:
		// environment only
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	cfg := Default()
	if err := loadFile(&cfg, path); err != nil {
		return nil, err
	}
	applyEnv(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func loadFile(cfg *Config, path string) error {
	if path == "" {
		if p := os.Getenv("RECIPEBOX_CONFIG"); p != "" {
			path = p
		} else {
			def, err := DefaultConfigPath()
			if err != nil {
				return err
			}
			path = def
		}
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "SERVER_HOST")
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Storage.DataDir, "RECIPEBOX_DATA_DIR")
	setString(&cfg.Storage.DBPath, "RECIPEBOX_DB_PATH")
	setString(&cfg.Storage.RedisURL, "REDIS_URL")
	setString(&cfg.Gemini.APIURL, "GEMINI_API_URL")
	setString(&cfg.Gemini.Model, "GEMINI_MODEL")
	setString(&cfg.Fetch.ClientClass, "RECIPEBOX_CLIENT_CLASS")
	setString(&cfg.OCR.TesseractPath, "TESSERACT_PATH")
	setString(&cfg.Camera.Command, "RECIPEBOX_CAMERA_COMMAND")
	setString(&cfg.Backup.S3Bucket, "S3_BUCKET_NAME")
	setString(&cfg.Backup.Region, "AWS_REGION")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if v := os.Getenv("RECIPEBOX_EXTRACTIONS_PER_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.ExtractionsPerHour = n
		}
	}
	if v := os.Getenv("RECIPEBOX_FALLBACK_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extraction.FallbackTimeoutSeconds = n
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) normalize() error {
	dataDir, err := ExpandPath(c.Storage.DataDir)
	if err != nil {
		return err
	}
	c.Storage.DataDir = dataDir

	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(dataDir, defaultDBName)
	} else if c.Storage.DBPath, err = ExpandPath(c.Storage.DBPath); err != nil {
		return err
	}

	c.Fetch.ClientClass = strings.ToLower(strings.TrimSpace(c.Fetch.ClientClass))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Gemini.APIURL = strings.TrimRight(c.Gemini.APIURL, "/")
	return nil
}

// EnsureDataDir creates the data directory.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory %q: %w", c.Storage.DataDir, err)
	}
	return nil
}

// FetchOptions converts the fetch section into fetch.Options.
func (c *Config) FetchOptions() fetch.Options {
	f := c.Fetch
	return fetch.Options{
		Class:                   fetch.ClientClass(f.ClientClass),
		DesktopProxies:          f.DesktopProxies,
		ConstrainedProxies:      f.ConstrainedProxies,
		DirectTimeout:           time.Duration(f.DirectTimeoutSeconds) * time.Second,
		ProxyTimeout:            time.Duration(f.ProxyTimeoutSeconds) * time.Second,
		ConstrainedProxyTimeout: time.Duration(f.ConstrainedProxyTimeoutSeconds) * time.Second,
		RetryDelay:              time.Duration(f.RetryDelayMillis) * time.Millisecond,
		SpoofUserAgent:          f.SpoofUserAgent,
	}
}

// CacheTTL returns the page cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Fetch.CacheTTLMinutes) * time.Minute
}

// FallbackTimeout bounds how long the OCR fallback prompt waits for an answer.
func (c *Config) FallbackTimeout() time.Duration {
	return time.Duration(c.Extraction.FallbackTimeoutSeconds) * time.Second
}

// GeminiTimeout bounds a single model call.
func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSeconds) * time.Second
}

// ServerAddr returns host:port for the local API.
func (c *Config) ServerAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// ExpandPath expands a leading ~ and returns an absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
