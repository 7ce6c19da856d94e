// Package ical renders stored events as an iCalendar feed.
package ical

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"eventboard/internal/domain"
)

const productID = "-//eventboard//Event Board//EN"

// Export returns an RFC 5545 calendar with one VEVENT per event. Each VEVENT spans
// the conflict window starting at the event's dateTime.
func Export(events []*domain.Event, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName("Events")

	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(e.DateTime.UTC())
		ve.SetEndAt(e.DateTime.Add(domain.ConflictWindow).UTC())
		ve.SetSummary(e.Title)
		ve.SetDescription(e.Description)
		ve.SetLocation(e.Venue)
		if e.Category != domain.CategoryNone {
			ve.AddProperty(ics.ComponentPropertyCategories, string(e.Category))
		}
	}
	return cal.Serialize()
}
