// Package jsonrepo implements the repository interfaces over one JSON file
// per collection. Every read-modify-write runs under a single store-wide
// mutex and files are replaced atomically with a rename, so concurrent
// requests within one process never lose an update.
package jsonrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Collection file names and their top-level keys.
const (
	marathonsFile      = "marathons.json"
	usersFile          = "users.json"
	participationsFile = "participations.json"
	passingPointsFile  = "passingPoints.json"
	refreshTokensFile  = "refreshTokens.json"
)

var collectionKeys = map[string]string{
	marathonsFile:      "marathons",
	usersFile:          "users",
	participationsFile: "participations",
	passingPointsFile:  "passingPoints",
	refreshTokensFile:  "refreshTokens",
}

// Store is the shared file handle set behind every JSON repository.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore prepares dir, creating it and any missing collection file.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("json data dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: filepath.Clean(dir)}
	for file, key := range collectionKeys {
		path := filepath.Join(s.dir, file)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := writeJSON(path, map[string][]struct{}{key: {}}); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, fmt.Errorf("stat %s: %w", file, err)
		}
	}
	return s, nil
}

// Close is a no-op; files are not held open between calls.
func (s *Store) Close() error { return nil }

// Ping verifies the data directory is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(s.dir)
	return err
}

func readCollection[T any](s *Store, file string) ([]T, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	var env map[string][]T
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return env[collectionKeys[file]], nil
}

func writeCollection[T any](s *Store, file string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return writeJSON(filepath.Join(s.dir, file), map[string][]T{collectionKeys[file]: items})
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// locked runs fn under the store mutex after checking ctx.
func (s *Store) locked(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func nextID[T any](items []T, id func(T) int64) int64 {
	var max int64
	for _, it := range items {
		if v := id(it); v > max {
			max = v
		}
	}
	return max + 1
}
