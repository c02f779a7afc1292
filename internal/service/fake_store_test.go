package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/model"
)

var errStoreDown = errors.New("storage unavailable")

// fakeStore is an in-memory RecipeStore. Setting failing makes every call
// return errStoreDown.
type fakeStore struct {
	mu      sync.Mutex
	recipes []model.Recipe
	failing bool
}

func (s *fakeStore) Add(_ context.Context, r model.Recipe) (model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return model.Recipe{}, errStoreDown
	}
	r = r.Clone()
	r.ID = uuid.NewString()
	r.DateAdded = time.Now()
	model.Normalize(&r)
	if err := model.Validate(&r); err != nil {
		return model.Recipe{}, apperr.Wrap(apperr.Invalid, err)
	}
	s.recipes = append(s.recipes, r)
	return r, nil
}

func (s *fakeStore) Update(_ context.Context, r model.Recipe) (model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return model.Recipe{}, errStoreDown
	}
	for i := range s.recipes {
		if s.recipes[i].ID == r.ID {
			s.recipes[i] = r.Clone()
			return r, nil
		}
	}
	return model.Recipe{}, apperr.New(apperr.NotFound)
}

func (s *fakeStore) Get(_ context.Context, id string) (model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return model.Recipe{}, errStoreDown
	}
	for _, r := range s.recipes {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return model.Recipe{}, apperr.New(apperr.NotFound)
}

func (s *fakeStore) GetAll(context.Context) ([]model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errStoreDown
	}
	out := make([]model.Recipe, len(s.recipes))
	for i, r := range s.recipes {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	for i, r := range s.recipes {
		if r.ID == id {
			s.recipes = append(s.recipes[:i], s.recipes[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.NotFound)
}

func (s *fakeStore) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	s.recipes = nil
	return nil
}

func (s *fakeStore) setFailing(v bool) {
	s.mu.Lock()
	s.failing = v
	s.mu.Unlock()
}
