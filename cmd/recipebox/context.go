package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/config"
	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/backup"
	"github.com/pageza/recipebox/internal/database"
	"github.com/pageza/recipebox/internal/fetch"
	"github.com/pageza/recipebox/internal/logger"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/ocr"
	"github.com/pageza/recipebox/internal/service"
)

// limiterKeys bounds the in-process rate limit table.
const limiterKeys = 1024

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadConfig(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDataDir(); err != nil {
			c.configErr = err
			return
		}
		logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		c.config = cfg
	})
	return c.config, c.configErr
}

// app bundles the collaborators a command needs. Close releases them.
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	store      *service.RecipeService
	collection *service.Collection
	redis      *redis.Client
}

func (c *commandContext) openApp(ctx context.Context) (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	store := service.NewRecipeService(db, database.NewStoreLock(cfg.Storage.DBPath))
	collection := service.NewCollection(store)
	if err := collection.Load(ctx); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("load recipes: %w", err)
	}
	return &app{cfg: cfg, db: db, store: store, collection: collection}, nil
}

// withApp opens the app, runs fn and closes it again.
func (c *commandContext) withApp(ctx context.Context, fn func(*app) error) error {
	a, err := c.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, database.Close(a.db))
	return errors.Join(errs...)
}

// pageCache prefers Redis when configured and reachable, then an in-process LRU.
func (a *app) pageCache(ctx context.Context) fetch.Cache {
	if url := a.cfg.Storage.RedisURL; url != "" {
		client, err := database.NewRedisClient(ctx, url)
		if err == nil {
			a.redis = client
			return fetch.NewRedisCache(client, a.cfg.CacheTTL())
		}
		slog.Warn("Redis unavailable, using in-process page cache", "error", err)
	}
	if a.cfg.Fetch.CacheSize <= 0 {
		return nil
	}
	return fetch.NewLRUCache(a.cfg.Fetch.CacheSize, a.cfg.CacheTTL())
}

func (a *app) extractor(ctx context.Context) *service.Extractor {
	opts := a.cfg.FetchOptions()
	opts.Cache = a.pageCache(ctx)

	return service.NewExtractor(service.ExtractorDeps{
		Fetcher:    fetch.New(opts),
		LLM:        service.NewLLMService(a.cfg.Gemini.APIURL, a.cfg.Gemini.Model, a.cfg.GeminiTimeout()),
		Recognizer: ocr.NewTesseract(a.cfg.OCR.TesseractPath, a.cfg.OCR.Language),
		Store:      a.store,
		Keys:       a.cfg.NewKeySource(),
		Online:     fetch.NewOnlineProbe(a.cfg.Gemini.APIURL),
		Publish:    a.collection.Publish,
	})
}

// extractionLimiter shares counts through Redis when the page cache connected
// to it, else counts in process. It returns nil when limiting is disabled.
func (a *app) extractionLimiter() *middleware.RateLimiter {
	limit := a.cfg.Server.ExtractionsPerHour
	if limit <= 0 {
		return nil
	}
	var counter middleware.Counter = middleware.NewMemoryCounter(limiterKeys, time.Hour)
	if a.redis != nil {
		counter = middleware.NewRedisCounter(a.redis)
	}
	return middleware.NewExtractionRateLimiter(counter, limit)
}

// backupTarget returns the S3 store when useS3 is set, else the local backup directory.
func (a *app) backupTarget(ctx context.Context, useS3 bool) (backup.Target, error) {
	if !useS3 {
		return backup.NewFileStore(filepath.Join(a.cfg.Storage.DataDir, "backups")), nil
	}
	s3cfg, err := config.NewS3Config(ctx, a.cfg.Backup)
	if err != nil {
		return nil, fmt.Errorf("configure S3: %w", err)
	}
	return backup.NewS3Store(s3cfg), nil
}

// resolveID accepts a full recipe id or a unique prefix of one.
func resolveID(collection *service.Collection, ref string) (model.Recipe, error) {
	ref = strings.TrimSpace(ref)
	if r, err := collection.Get(ref); err == nil {
		return r, nil
	}
	var matches []model.Recipe
	for _, r := range collection.Recipes() {
		if ref != "" && strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return model.Recipe{}, apperr.Newf(apperr.NotFound, "no recipe matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return model.Recipe{}, apperr.Newf(apperr.Invalid, "%q matches %d recipes", ref, len(matches))
	}
}
