package services

import (
	"encoding/json"
	"fmt"
	"time"

	"eventboard/internal/domain"
)

// isoMillis matches the persisted dateTime layout, e.g. 2024-01-01T09:00:00.000Z.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// eventRecord is the persisted shape of one event inside the slot.
type eventRecord struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Venue         string `json:"venue"`
	Category      string `json:"category"`
	DateTime      string `json:"dateTime"`
	MaxAttendance *int   `json:"maxAttendance,omitempty"`
}

// encodeEvents serializes the full collection into the slot format.
func encodeEvents(events []*domain.Event) ([]byte, error) {
	records := make([]eventRecord, 0, len(events))
	for _, e := range events {
		records = append(records, eventRecord{
			ID:            e.ID,
			Title:         e.Title,
			Description:   e.Description,
			Venue:         e.Venue,
			Category:      string(e.Category),
			DateTime:      e.DateTime.UTC().Format(isoMillis),
			MaxAttendance: e.MaxAttendance,
		})
	}
	return json.Marshal(records)
}

// decodeEvents parses a slot value. Any record that does not fit the shape fails the
// whole value; callers treat that as an empty collection.
func decodeEvents(raw []byte) ([]*domain.Event, error) {
	var records []eventRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	events := make([]*domain.Event, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("decode events: record %d has no id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("decode events: duplicate id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
		t, err := time.Parse(time.RFC3339, r.DateTime)
		if err != nil {
			return nil, fmt.Errorf("decode events: record %d dateTime: %w", i, err)
		}
		draft := domain.EventDraft{
			Title:         r.Title,
			Description:   r.Description,
			Venue:         r.Venue,
			Category:      domain.Category(r.Category),
			DateTime:      t,
			MaxAttendance: r.MaxAttendance,
		}
		if err := draft.Validate(); err != nil {
			return nil, fmt.Errorf("decode events: record %q: %w", r.ID, err)
		}
		events = append(events, domain.NewEvent(r.ID, draft))
	}
	return events, nil
}
