package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// EventChange names the mutation an EventNotice reports.
type EventChange string

const (
	EventCreated EventChange = "created"
	EventUpdated EventChange = "updated"
	EventDeleted EventChange = "deleted"
)

// EventNoticeData holds data for the event change emails.
type EventNoticeData struct {
	Change EventChange
	// Event is the stored state after the change; for deletes, the removed event.
	// It may be nil when only the id is known.
	Event   *Event
	EventID string
}

// EventNotifier informs users that a mutation completed. It never affects stored state.
type EventNotifier interface {
	NotifyEventChange(ctx context.Context, data *EventNoticeData) error
}
