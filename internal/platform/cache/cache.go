// Package cache provides a small key-value cache used to memoize expensive
// reads such as patient list queries. Two backends are available: an
// in-process map for single-instance deployments and a LevelDB-backed file
// store that survives restarts.
package cache

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its entry has expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a key-value cache with per-entry TTL.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Close() error
}
