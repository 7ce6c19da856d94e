package domain

import "context"

// SlotRepository stores opaque values under string keys with optimistic versioning.
type SlotRepository interface {
	// Get returns the value and version stored under key. An absent slot yields (nil, 0, nil).
	Get(ctx context.Context, key string) ([]byte, int64, error)
	// Put replaces the value under key if its current version equals expectedVersion
	// (0 meaning the slot must not exist) and returns the new version. On mismatch it
	// returns ErrConcurrentModification and writes nothing.
	Put(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error)
}
