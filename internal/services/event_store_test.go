package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"eventboard/internal/domain"
	"eventboard/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const testSlot = "events"

var base = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (domain.EventStore, domain.SlotRepository) {
	t.Helper()
	slots := memory.NewSlotRepository()
	return NewEventStore(slots, testSlot, testLogger, time.Second), slots
}

func draftAt(title string, at time.Time) domain.EventDraft {
	return domain.EventDraft{
		Title:       title,
		Description: title + " description",
		Venue:       "Room 1",
		DateTime:    at,
	}
}

func intPtr(n int) *int { return &n }

// fakeSlotRepo wraps a SlotRepository and injects errors.
type fakeSlotRepo struct {
	domain.SlotRepository
	getErr    error
	putErr    error
	beforePut func()
	puts      int
}

func (f *fakeSlotRepo) Get(ctx context.Context, key string) ([]byte, int64, error) {
	if f.getErr != nil {
		return nil, 0, f.getErr
	}
	return f.SlotRepository.Get(ctx, key)
}

func (f *fakeSlotRepo) Put(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error) {
	f.puts++
	if f.beforePut != nil {
		f.beforePut()
	}
	if f.putErr != nil {
		return 0, f.putErr
	}
	return f.SlotRepository.Put(ctx, key, value, expectedVersion)
}

func TestEventStore_CreateAndList(t *testing.T) {
	ctx := context.Background()
	store, slots := newTestStore(t)

	draft := domain.EventDraft{
		Title:         "GopherCon",
		Description:   "Annual Go conference",
		Venue:         "Hall A",
		Category:      domain.CategoryConference,
		DateTime:      base,
		MaxAttendance: intPtr(300),
	}
	created, err := store.Create(ctx, draft)
	require.NoError(t, err)
	_, err = uuid.Parse(created.ID)
	require.NoError(t, err)

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "GopherCon", got.Title)
	assert.Equal(t, "Annual Go conference", got.Description)
	assert.Equal(t, "Hall A", got.Venue)
	assert.Equal(t, domain.CategoryConference, got.Category)
	assert.True(t, base.Equal(got.DateTime))
	require.NotNil(t, got.MaxAttendance)
	assert.Equal(t, 300, *got.MaxAttendance)

	raw, _, err := slots.Get(ctx, testSlot)
	require.NoError(t, err)
	reparsed, err := decodeEvents(raw)
	require.NoError(t, err)
	require.Len(t, reparsed, 1)
	assert.Equal(t, got.ID, reparsed[0].ID)
	assert.True(t, got.DateTime.Equal(reparsed[0].DateTime))
}

func TestEventStore_ReturnsStoredForm(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	plus2 := time.FixedZone("UTC+2", 2*60*60)

	created, err := store.Create(ctx, draftAt("Standup", time.Date(2024, 1, 1, 10, 30, 0, 123456789, plus2)))
	require.NoError(t, err)
	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, got, created)
	assert.Equal(t, "2024-01-01T08:30:00.123Z", created.DateTime.Format(isoMillis))

	updated, err := store.Update(ctx, created.ID, draftAt("Standup", time.Date(2024, 1, 1, 11, 0, 0, 999999999, plus2)))
	require.NoError(t, err)
	got, err = store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, got, updated)
	assert.Equal(t, "2024-01-01T09:00:00.999Z", updated.DateTime.Format(isoMillis))
}

func TestEventStore_ConflictUsesStoredPrecision(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	_, err := store.Create(ctx, draftAt("a", base))
	require.NoError(t, err)

	// Stored as exactly one hour before a.
	b, err := store.Create(ctx, draftAt("b", base.Add(-time.Hour+400*time.Microsecond)))
	require.NoError(t, err)
	assert.True(t, base.Add(-time.Hour).Equal(b.DateTime))
}

func TestEventStore_AssignsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		e, err := store.Create(ctx, draftAt("slot", base.Add(time.Duration(i)*2*time.Hour)))
		require.NoError(t, err)
		require.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
}

func TestEventStore_ConflictBoundary(t *testing.T) {
	tests := []struct {
		name         string
		offset       time.Duration
		wantConflict bool
	}{
		{"exactly 60 minutes after", 60 * time.Minute, false},
		{"59 minutes after", 59 * time.Minute, true},
		{"just under 60 minutes after", 60*time.Minute - time.Second, true},
		{"exactly 60 minutes before", -60 * time.Minute, false},
		{"59 minutes before", -59 * time.Minute, true},
		{"61 minutes before", -61 * time.Minute, false},
		{"same instant", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := newTestStore(t)
			existing, err := store.Create(ctx, draftAt("existing", base))
			require.NoError(t, err)

			_, err = store.Create(ctx, draftAt("candidate", base.Add(tt.offset)))
			if !tt.wantConflict {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrConflict)
			var conflict *domain.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, existing.ID, conflict.EventID)
			assert.Equal(t, domain.ConflictMessage, err.Error())

			events, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, events, 1)
		})
	}
}

func TestEventStore_ConflictAcrossTimeZones(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	_, err := store.Create(ctx, draftAt("utc", base))
	require.NoError(t, err)

	// 10:30 in UTC+2 is 08:30 UTC, 30 minutes before base.
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	_, err = store.Create(ctx, draftAt("offset", time.Date(2024, 1, 1, 10, 30, 0, 0, plus2)))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestEventStore_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *domain.EventDraft)
		wantField string
	}{
		{"missing title", func(d *domain.EventDraft) { d.Title = "" }, "title"},
		{"blank title", func(d *domain.EventDraft) { d.Title = "   " }, "title"},
		{"missing description", func(d *domain.EventDraft) { d.Description = "" }, "description"},
		{"missing venue", func(d *domain.EventDraft) { d.Venue = "" }, "venue"},
		{"missing dateTime", func(d *domain.EventDraft) { d.DateTime = time.Time{} }, "dateTime"},
		{"unknown category", func(d *domain.EventDraft) { d.Category = "Party" }, "category"},
		{"zero attendance", func(d *domain.EventDraft) { d.MaxAttendance = intPtr(0) }, "maxAttendance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			slots := &fakeSlotRepo{SlotRepository: memory.NewSlotRepository()}
			store := NewEventStore(slots, testSlot, testLogger, time.Second)

			d := draftAt("valid", base)
			tt.mutate(&d)
			_, err := store.Create(ctx, d)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Zero(t, slots.puts)
		})
	}
}

func TestEventStore_UpdateSelfExclusion(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	e, err := store.Create(ctx, draftAt("standup", base))
	require.NoError(t, err)

	d := draftAt("standup renamed", base)
	d.Category = domain.CategoryMeetup
	updated, err := store.Update(ctx, e.ID, d)
	require.NoError(t, err)
	assert.Equal(t, e.ID, updated.ID)
	assert.Equal(t, "standup renamed", updated.Title)
	assert.Equal(t, domain.CategoryMeetup, updated.Category)

	// Shifting within its own window is fine too.
	_, err = store.Update(ctx, e.ID, draftAt("standup", base.Add(30*time.Minute)))
	require.NoError(t, err)
}

func TestEventStore_UpdateIntoAnotherWindow(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	a, err := store.Create(ctx, draftAt("a", base))
	require.NoError(t, err)
	b, err := store.Create(ctx, draftAt("b", base.Add(2*time.Hour)))
	require.NoError(t, err)

	_, err = store.Update(ctx, b.ID, draftAt("b moved", base.Add(30*time.Minute)))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, a.ID, conflict.EventID)

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Title)
	assert.True(t, base.Add(2*time.Hour).Equal(got.DateTime))
}

func TestEventStore_UpdateNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Update(context.Background(), "missing", draftAt("x", base))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventStore_UpdateClearsOptionalFields(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	d := draftAt("workshop", base)
	d.Category = domain.CategoryWorkshop
	d.MaxAttendance = intPtr(20)
	e, err := store.Create(ctx, d)
	require.NoError(t, err)

	updated, err := store.Update(ctx, e.ID, draftAt("workshop", base))
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryNone, updated.Category)
	assert.Nil(t, updated.MaxAttendance)
}

func TestEventStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	a, err := store.Create(ctx, draftAt("a", base))
	require.NoError(t, err)
	b, err := store.Create(ctx, draftAt("b", base.Add(3*time.Hour)))
	require.NoError(t, err)

	removed, err := store.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, a.ID, removed.ID)
	assert.Equal(t, "a", removed.Title)
	after, err := store.List(ctx)
	require.NoError(t, err)

	removed, err = store.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, removed)
	again, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, after, again)
	require.Len(t, again, 1)
	assert.Equal(t, b.ID, again[0].ID)
}

func TestEventStore_DeleteAbsentDoesNotWrite(t *testing.T) {
	slots := &fakeSlotRepo{SlotRepository: memory.NewSlotRepository()}
	store := NewEventStore(slots, testSlot, testLogger, time.Second)
	removed, err := store.Delete(context.Background(), "never-existed")
	require.NoError(t, err)
	assert.Nil(t, removed)
	assert.Zero(t, slots.puts)
}

func TestEventStore_MalformedSlot(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `not json`},
		{"object instead of array", `{"id":"1"}`},
		{"bad dateTime", `[{"id":"1","title":"t","description":"d","venue":"v","category":"","dateTime":"yesterday"}]`},
		{"missing id", `[{"title":"t","description":"d","venue":"v","dateTime":"2024-01-01T09:00:00.000Z"}]`},
		{"empty title", `[{"id":"1","title":" ","description":"d","venue":"v","dateTime":"2024-01-01T09:00:00.000Z"}]`},
		{"empty description", `[{"id":"1","title":"t","description":"","venue":"v","dateTime":"2024-01-01T09:00:00.000Z"}]`},
		{"missing venue", `[{"id":"1","title":"t","description":"d","dateTime":"2024-01-01T09:00:00.000Z"}]`},
		{"unknown category", `[{"id":"1","title":"t","description":"d","venue":"v","category":"Party","dateTime":"2024-01-01T09:00:00.000Z"}]`},
		{"zero attendance", `[{"id":"1","title":"t","description":"d","venue":"v","dateTime":"2024-01-01T09:00:00.000Z","maxAttendance":0}]`},
		{"one bad record among good ones", `[{"id":"1","title":"t","description":"d","venue":"v","dateTime":"2024-01-01T06:00:00.000Z"},{"id":"2","title":"","description":"d","venue":"v","dateTime":"2024-01-01T12:00:00.000Z"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, slots := newTestStore(t)
			_, err := slots.Put(ctx, testSlot, []byte(tt.raw), 0)
			require.NoError(t, err)

			events, err := store.List(ctx)
			require.NoError(t, err)
			require.NotNil(t, events)
			assert.Empty(t, events)

			// The next write replaces the unreadable content.
			_, err = store.Create(ctx, draftAt("fresh", base))
			require.NoError(t, err)
			events, err = store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, events, 1)
		})
	}
}

func TestEventStore_NullSlotIsEmpty(t *testing.T) {
	ctx := context.Background()
	store, slots := newTestStore(t)
	_, err := slots.Put(ctx, testSlot, []byte(`null`), 0)
	require.NoError(t, err)

	events, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventStore_ReadsForeignTimestamps(t *testing.T) {
	ctx := context.Background()
	store, slots := newTestStore(t)
	raw := `[{"id":"abc","title":"t","description":"d","venue":"v","category":"Webinar","dateTime":"2024-01-01T10:00:00+01:00","maxAttendance":5}]`
	_, err := slots.Put(ctx, testSlot, []byte(raw), 0)
	require.NoError(t, err)

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, base.Equal(events[0].DateTime))
	assert.Equal(t, domain.CategoryWebinar, events[0].Category)
}

func TestEventStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	d := draftAt("a", base)
	d.MaxAttendance = intPtr(10)
	store, _ := newTestStore(t)
	_, err := store.Create(ctx, d)
	require.NoError(t, err)

	events, err := store.List(ctx)
	require.NoError(t, err)
	events[0].Title = "mutated"
	*events[0].MaxAttendance = 99

	again, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Title)
	assert.Equal(t, 10, *again[0].MaxAttendance)
}

func TestEventStore_StorageErrors(t *testing.T) {
	ctx := context.Background()
	readErr := errors.New("disk gone")

	t.Run("read error surfaces", func(t *testing.T) {
		slots := &fakeSlotRepo{SlotRepository: memory.NewSlotRepository(), getErr: readErr}
		store := NewEventStore(slots, testSlot, testLogger, time.Second)
		_, err := store.List(ctx)
		require.ErrorIs(t, err, readErr)
		_, err = store.Create(ctx, draftAt("a", base))
		require.ErrorIs(t, err, readErr)
	})

	t.Run("concurrent modification", func(t *testing.T) {
		slots := &fakeSlotRepo{SlotRepository: memory.NewSlotRepository(), putErr: domain.ErrConcurrentModification}
		store := NewEventStore(slots, testSlot, testLogger, time.Second)
		_, err := store.Create(ctx, draftAt("a", base))
		require.ErrorIs(t, err, domain.ErrConcurrentModification)
		events, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("slot changed between read and write", func(t *testing.T) {
		inner := memory.NewSlotRepository()
		slots := &fakeSlotRepo{SlotRepository: inner}
		store := NewEventStore(slots, testSlot, testLogger, time.Second)
		_, err := store.Create(ctx, draftAt("a", base))
		require.NoError(t, err)

		slots.beforePut = func() {
			_, err := inner.Put(ctx, testSlot, []byte(`[]`), 1)
			require.NoError(t, err)
		}
		_, err = store.Create(ctx, draftAt("b", base.Add(2*time.Hour)))
		require.ErrorIs(t, err, domain.ErrConcurrentModification)
	})
}

func TestEventStore_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	a, err := store.Create(ctx, domain.EventDraft{
		Title:       "Standup",
		Description: "Daily sync",
		Venue:       "Room 1",
		DateTime:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, draftAt("B", time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)))
	require.ErrorIs(t, err, domain.ErrConflict)

	c, err := store.Create(ctx, draftAt("C", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, a.ID, events[0].ID)
	assert.Equal(t, c.ID, events[1].ID)

	_, err = store.Delete(ctx, a.ID)
	require.NoError(t, err)
	events, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, c.ID, events[0].ID)

	updated, err := store.Update(ctx, c.ID, draftAt("C", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, c.ID, updated.ID)
	assert.Equal(t, 9, updated.DateTime.Hour())
}

func TestEncodeEvents_PersistedShape(t *testing.T) {
	raw, err := encodeEvents([]*domain.Event{
		{ID: "1", Title: "t", Description: "d", Venue: "v", DateTime: base},
		{ID: "2", Title: "t", Description: "d", Venue: "v", Category: domain.CategoryMeetup, DateTime: base.Add(time.Hour), MaxAttendance: intPtr(4)},
	})
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01-01T09:00:00.000Z", records[0]["dateTime"])
	assert.Equal(t, "", records[0]["category"])
	assert.NotContains(t, records[0], "maxAttendance")
	assert.Equal(t, "Meetup", records[1]["category"])
	assert.EqualValues(t, 4, records[1]["maxAttendance"])

	decoded, err := decodeEvents(raw)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "2", decoded[1].ID)
	assert.Equal(t, 4, *decoded[1].MaxAttendance)
}

func TestDecodeEvents_RejectsDuplicateIDs(t *testing.T) {
	raw := `[{"id":"1","title":"t","description":"d","venue":"v","dateTime":"2024-01-01T09:00:00.000Z"},` +
		`{"id":"1","title":"t","description":"d","venue":"v","dateTime":"2024-01-01T11:00:00.000Z"}]`
	_, err := decodeEvents([]byte(raw))
	require.ErrorContains(t, err, "duplicate id")
}
