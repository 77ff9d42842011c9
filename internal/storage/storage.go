// Package storage provides the local key-value store the board persists to.
//
// Values are opaque JSON documents addressed by short keys. Three backends
// exist: a directory of JSON files (the default), a single SQLite database,
// and an in-memory map for tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DefaultDBFile is the SQLite database file name inside the data directory.
const DefaultDBFile = "moonboard.db"

// Store is a local key-value store.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes a single value.
	Put(ctx context.Context, key string, value []byte) error
	// PutMany writes several values together. Backends that support
	// transactions commit all of them or none.
	PutMany(ctx context.Context, values map[string][]byte) error
	// Keys lists stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)
	// Close releases the store.
	Close() error
}

// Open opens the store for backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, DefaultDBFile))
	case BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q (expected file|sqlite|memory)", backend)
}

// ValidateKey checks that key is usable by every backend.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("invalid key: empty")
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			return fmt.Errorf("invalid key %q: only letters, digits, '.', '_' and '-' are allowed", key)
		}
	}
	if key == "." || key == ".." {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
