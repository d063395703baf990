package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dmscreen/logger"
)

// Storage keys, one JSON document per panel. The versioned names match the
// export files produced by earlier releases, so old exports import cleanly.
const (
	KeyNotes      = "dm_notes_v1"
	KeyImages     = "dm_images_v1"
	KeyTracks     = "dm_tracks_v1"
	KeyGroups     = "dm_groups_v1"
	KeyEnemies    = "dm_enemies_v1"
	KeyInitiative = "dm_initiative_v1"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Store is a flat key-value bucket of JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// SaveJSON marshals v and writes it under key.
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// LoadJSON reads key into v. A missing key leaves v untouched and returns
// false. Corrupt JSON is treated the same as a missing key: the caller keeps
// its empty default rather than operating on a malformed document.
func LoadJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("discarding corrupt stored document",
			logger.String("key", key),
			logger.ErrorField(err))
		return false, nil
	}
	return true, nil
}
