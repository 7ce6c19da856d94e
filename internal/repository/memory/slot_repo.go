package memory

import (
	"context"
	"sync"

	"eventboard/internal/domain"
)

type slot struct {
	value   []byte
	version int64
}

type slotRepository struct {
	mu    sync.Mutex
	slots map[string]slot
}

// NewSlotRepository returns a process-local SlotRepository. Contents are lost on exit.
func NewSlotRepository() domain.SlotRepository {
	return &slotRepository{slots: make(map[string]slot)}
}

func (r *slotRepository) Get(ctx context.Context, key string) ([]byte, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[key]
	if !ok {
		return nil, 0, nil
	}
	return append([]byte(nil), s.value...), s.version, nil
}

func (r *slotRepository) Put(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[key].version != expectedVersion {
		return 0, domain.ErrConcurrentModification
	}
	next := expectedVersion + 1
	r.slots[key] = slot{value: append([]byte(nil), value...), version: next}
	return next, nil
}
