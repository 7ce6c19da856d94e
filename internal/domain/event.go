package domain

import (
	"context"
	"strings"
	"time"
)

// ConflictWindow is the minimum distance between the dateTime of any two stored events.
const ConflictWindow = 60 * time.Minute

// Category classifies an event. The empty Category means "none".
type Category string

const (
	CategoryNone       Category = ""
	CategoryConference Category = "Conference"
	CategoryWorkshop   Category = "Workshop"
	CategoryMeetup     Category = "Meetup"
	CategoryWebinar    Category = "Webinar"
)

// Categories lists the selectable categories in display order.
var Categories = []Category{CategoryConference, CategoryWorkshop, CategoryMeetup, CategoryWebinar}

// Valid reports whether c is empty or one of Categories.
func (c Category) Valid() bool {
	if c == CategoryNone {
		return true
	}
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Event represents a scheduled occurrence.
// swagger:model Event
type Event struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Venue         string    `json:"venue"`
	Category      Category  `json:"category"`
	DateTime      time.Time `json:"dateTime"`
	MaxAttendance *int      `json:"maxAttendance,omitempty"`
}

// EventDraft holds every Event field except ID. It is the input of create and update.
type EventDraft struct {
	Title         string
	Description   string
	Venue         string
	Category      Category
	DateTime      time.Time
	MaxAttendance *int
}

// NewEvent returns an Event built from the draft with the given id.
func NewEvent(id string, d EventDraft) *Event {
	e := &Event{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Venue:       d.Venue,
		Category:    d.Category,
		DateTime:    d.DateTime,
	}
	if d.MaxAttendance != nil {
		n := *d.MaxAttendance
		e.MaxAttendance = &n
	}
	return e
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	c := *e
	if e.MaxAttendance != nil {
		n := *e.MaxAttendance
		c.MaxAttendance = &n
	}
	return &c
}

// Validate checks required fields and value ranges. It returns a *ValidationError
// naming the first offending field.
func (d EventDraft) Validate() error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return &ValidationError{Field: "title", Message: "Title is required"}
	case strings.TrimSpace(d.Description) == "":
		return &ValidationError{Field: "description", Message: "Description is required"}
	case strings.TrimSpace(d.Venue) == "":
		return &ValidationError{Field: "venue", Message: "Venue is required"}
	case d.DateTime.IsZero():
		return &ValidationError{Field: "dateTime", Message: "Date and time is required"}
	case !d.Category.Valid():
		return &ValidationError{Field: "category", Message: "Category must be one of Conference, Workshop, Meetup, Webinar"}
	case d.MaxAttendance != nil && *d.MaxAttendance < 1:
		return &ValidationError{Field: "maxAttendance", Message: "Must be at least 1"}
	}
	return nil
}

// EventStore is the only path through which events are read or changed.
type EventStore interface {
	List(ctx context.Context) ([]*Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	Create(ctx context.Context, draft EventDraft) (*Event, error)
	Update(ctx context.Context, id string, draft EventDraft) (*Event, error)
	// Delete is idempotent: deleting an absent id succeeds and returns a nil event.
	// Otherwise it returns the event it removed.
	Delete(ctx context.Context, id string) (*Event, error)
}
