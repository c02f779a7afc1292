// Package backup stores collection export files locally or in S3.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoBackups is returned by Latest when the target holds no export files.
var ErrNoBackups = errors.New("no backups found")

const filePrefix = "recipes-backup-"

// Target is somewhere export files can be written to and read back from.
type Target interface {
	// Save writes data under name and returns where it was stored.
	Save(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, name string) ([]byte, error)
	// Latest returns the name of the most recent export.
	Latest(ctx context.Context) (string, error)
}

// FileStore keeps backups in a local directory.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (f *FileStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	path := filepath.Join(f.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}

func (f *FileStore) Load(_ context.Context, name string) ([]byte, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.Dir, filepath.Base(name))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return data, nil
}

func (f *FileStore) Latest(_ context.Context) (string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoBackups
		}
		return "", err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isBackupName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return latestName(names)
}

func isBackupName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".json")
}

// latestName picks the newest of date-stamped names; they sort lexically.
func latestName(names []string) (string, error) {
	if len(names) == 0 {
		return "", ErrNoBackups
	}
	sort.Strings(names)
	return names[len(names)-1], nil
}
