package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/database"
	"github.com/pageza/recipebox/internal/metrics"
	"github.com/pageza/recipebox/internal/model"
)

// RecipeStore persists the recipe collection. GetAll returns recipes in
// insertion order.
type RecipeStore interface {
	Add(ctx context.Context, recipe model.Recipe) (model.Recipe, error)
	Update(ctx context.Context, recipe model.Recipe) (model.Recipe, error)
	Get(ctx context.Context, id string) (model.Recipe, error)
	GetAll(ctx context.Context) ([]model.Recipe, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// RecipeService handles recipe persistence in SQLite
type RecipeService struct {
	db   *gorm.DB
	lock *database.StoreLock

	// mu serializes writers in this process; lock covers other processes.
	mu sync.Mutex
}

// NewRecipeService creates a new RecipeService instance. lock may be nil when
// only one process uses the database.
func NewRecipeService(db *gorm.DB, lock *database.StoreLock) *RecipeService {
	return &RecipeService{db: db, lock: lock}
}

func (s *RecipeService) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := func() error {
		return s.db.WithContext(ctx).Transaction(fn)
	}
	var err error
	if s.lock != nil {
		err = s.lock.WithLock(ctx, run)
	} else {
		err = run()
	}
	if err != nil && apperr.KindOf(err) != apperr.NotFound && apperr.KindOf(err) != apperr.Invalid {
		metrics.StoreErrors.WithLabelValues(op).Inc()
	}
	return err
}

func prepare(r *model.Recipe) error {
	model.Normalize(r)
	if err := model.Validate(r); err != nil {
		return apperr.Wrap(apperr.Invalid, err)
	}
	return nil
}

// Add stores recipe under a fresh id with DateAdded set to now.
func (s *RecipeService) Add(ctx context.Context, recipe model.Recipe) (model.Recipe, error) {
	r := recipe.Clone()
	r.ID = uuid.NewString()
	r.DateAdded = time.Now().UTC()
	if err := prepare(&r); err != nil {
		return model.Recipe{}, err
	}

	err := s.write(ctx, "add", func(tx *gorm.DB) error {
		return tx.Create(&r).Error
	})
	if err != nil {
		return model.Recipe{}, err
	}
	return r, nil
}

// Update replaces an existing recipe. DateAdded is preserved.
func (s *RecipeService) Update(ctx context.Context, recipe model.Recipe) (model.Recipe, error) {
	r := recipe.Clone()
	if err := prepare(&r); err != nil {
		return model.Recipe{}, err
	}

	err := s.write(ctx, "update", func(tx *gorm.DB) error {
		var existing model.Recipe
		if err := tx.First(&existing, "id = ?", r.ID).Error; err != nil {
			return notFound(err, r.ID)
		}
		r.DateAdded = existing.DateAdded
		return tx.Save(&r).Error
	})
	if err != nil {
		return model.Recipe{}, err
	}
	return r, nil
}

// Get retrieves a recipe by ID
func (s *RecipeService) Get(ctx context.Context, id string) (model.Recipe, error) {
	var recipe model.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.StoreErrors.WithLabelValues("get").Inc()
		}
		return model.Recipe{}, notFound(err, id)
	}
	return recipe, nil
}

// GetAll lists every recipe in insertion order
func (s *RecipeService) GetAll(ctx context.Context) ([]model.Recipe, error) {
	var recipes []model.Recipe
	if err := s.db.WithContext(ctx).Order("rowid").Find(&recipes).Error; err != nil {
		metrics.StoreErrors.WithLabelValues("get_all").Inc()
		return nil, err
	}
	return recipes, nil
}

// Delete deletes a recipe
func (s *RecipeService) Delete(ctx context.Context, id string) error {
	return s.write(ctx, "delete", func(tx *gorm.DB) error {
		res := tx.Delete(&model.Recipe{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Newf(apperr.NotFound, "recipe %s not found", id)
		}
		return nil
	})
}

// DeleteAll empties the collection.
func (s *RecipeService) DeleteAll(ctx context.Context) error {
	return s.write(ctx, "delete_all", func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Recipe{}).Error
	})
}

func notFound(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Newf(apperr.NotFound, "recipe %s not found", id)
	}
	return err
}
