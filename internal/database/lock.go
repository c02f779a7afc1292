package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a blocked writer retries the lock.
const lockRetryDelay = 100 * time.Millisecond

// StoreLock serializes store writers across processes sharing one database file.
type StoreLock struct {
	lock *flock.Flock
}

// NewStoreLock creates a lock next to the database file.
func NewStoreLock(dbPath string) *StoreLock {
	return &StoreLock{lock: flock.New(dbPath + ".lock")}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *StoreLock) Acquire(ctx context.Context) error {
	ok, err := l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire store lock: %s is held by another process", l.lock.Path())
	}
	return nil
}

// Release drops the lock.
func (l *StoreLock) Release() error {
	return l.lock.Unlock()
}

// WithLock runs fn while holding the lock.
func (l *StoreLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
