package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventboard/internal/domain"
)

const defaultContextTimeout = 5 * time.Second

type eventStore struct {
	slots          domain.SlotRepository
	key            string
	logger         *slog.Logger
	newID          func() string
	contextTimeout time.Duration

	// mu serializes read-modify-write sequences within this process. Writers in
	// other processes are caught by the slot's version check.
	mu sync.Mutex
}

// NewEventStore returns an EventStore that keeps the whole collection in the slot
// named key.
func NewEventStore(slots domain.SlotRepository, key string, logger *slog.Logger, timeout time.Duration) domain.EventStore {
	if timeout <= 0 {
		timeout = defaultContextTimeout
	}
	return &eventStore{
		slots:          slots,
		key:            key,
		logger:         logger,
		newID:          uuid.NewString,
		contextTimeout: timeout,
	}
}

func (s *eventStore) List(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	events, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (s *eventStore) Get(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	events, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(events, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	return events[i].Clone(), nil
}

func (s *eventStore) Create(ctx context.Context, draft domain.EventDraft) (*domain.Event, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.DateTime = storedTime(draft.DateTime)
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	events, version, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if conflict := findConflict(events, draft.DateTime, ""); conflict != nil {
		return nil, conflict
	}
	event := domain.NewEvent(s.newID(), draft)
	if err := s.save(ctx, append(events, event), version); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "event created", "id", event.ID, "date_time", event.DateTime)
	return event.Clone(), nil
}

func (s *eventStore) Update(ctx context.Context, id string, draft domain.EventDraft) (*domain.Event, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.DateTime = storedTime(draft.DateTime)
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	events, version, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(events, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	if conflict := findConflict(events, draft.DateTime, id); conflict != nil {
		return nil, conflict
	}
	event := domain.NewEvent(id, draft)
	events[i] = event
	if err := s.save(ctx, events, version); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "event updated", "id", id, "date_time", event.DateTime)
	return event.Clone(), nil
}

func (s *eventStore) Delete(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	events, version, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(events, id)
	if i < 0 {
		s.logger.DebugContext(ctx, "delete of absent event ignored", "id", id)
		return nil, nil
	}
	removed := events[i]
	if err := s.save(ctx, slices.Delete(events, i, i+1), version); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "event deleted", "id", id)
	return removed, nil
}

// load reads the slot. Unreadable content is logged and replaced by an empty
// collection; the returned version still lets the next write overwrite it.
func (s *eventStore) load(ctx context.Context) ([]*domain.Event, int64, error) {
	raw, version, err := s.slots.Get(ctx, s.key)
	if err != nil {
		return nil, 0, fmt.Errorf("read slot %q: %w", s.key, err)
	}
	if len(raw) == 0 {
		return []*domain.Event{}, version, nil
	}
	events, err := decodeEvents(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable event slot", "key", s.key, "err", err)
		return []*domain.Event{}, version, nil
	}
	return events, version, nil
}

func (s *eventStore) save(ctx context.Context, events []*domain.Event, version int64) error {
	raw, err := encodeEvents(events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	if _, err := s.slots.Put(ctx, s.key, raw, version); err != nil {
		return fmt.Errorf("write slot %q: %w", s.key, err)
	}
	return nil
}

// findConflict returns the first stored event, other than exclude, whose dateTime
// lies strictly less than domain.ConflictWindow away from t.
func findConflict(events []*domain.Event, t time.Time, exclude string) *domain.ConflictError {
	for _, e := range events {
		if exclude != "" && e.ID == exclude {
			continue
		}
		diff := t.Sub(e.DateTime)
		if diff < 0 {
			diff = -diff
		}
		if diff < domain.ConflictWindow {
			return &domain.ConflictError{EventID: e.ID, Title: e.Title, DateTime: e.DateTime}
		}
	}
	return nil
}

// storedTime reduces t to the zone and precision the slot keeps.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func indexOf(events []*domain.Event, id string) int {
	return slices.IndexFunc(events, func(e *domain.Event) bool { return e.ID == id })
}
