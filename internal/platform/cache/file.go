package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
)

type fileEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// FileStore persists cache entries in a LevelDB database on disk so cached
// data survives process restarts.
type FileStore struct {
	db  *leveldb.DB
	now func() time.Time
}

// NewFileStore opens (or creates) a LevelDB database at dir.
func NewFileStore(dir string) (*FileStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	return &FileStore{db: db, now: time.Now}, nil
}

func (s *FileStore) Get(key string) ([]byte, error) {
	raw, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	if !entry.ExpiresAt.IsZero() && s.now().After(entry.ExpiresAt) {
		_ = s.db.Delete([]byte(key), nil)
		return nil, ErrNotFound
	}
	return entry.Value, nil
}

func (s *FileStore) Set(key string, value []byte, ttl time.Duration) error {
	entry := fileEntry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := s.db.Put([]byte(key), raw, nil); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	if err := s.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return s.db.Close()
}
