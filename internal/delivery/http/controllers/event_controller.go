package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
		"time"

	"eventboard/internal/adapters/ical"
	"eventboard/internal/delivery/http/helpers"
	"eventboard/internal/domain"
)

// Display states of an event relative to now.
const (
	StatusUpcoming = "upcoming"
	StatusPast     = "past"
)

// EventRequest is the request body for POST /events and PUT /events/{eventID}.
// PUT replaces every field, so omitted optional fields are cleared. Field rules
// live on domain.EventDraft.
type EventRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Venue         string     `json:"venue"`
	Category      string     `json:"category"`
	DateTime      *time.Time `json:"dateTime"`
	MaxAttendance *int       `json:"maxAttendance"`
}

func (e EventRequest) draft() domain.EventDraft {
	d := domain.EventDraft{
		Title:         e.Title,
		Description:   e.Description,
		Venue:         e.Venue,
		Category:      domain.Category(e.Category),
		MaxAttendance: e.MaxAttendance,
	}
	if e.DateTime != nil {
		d.DateTime = *e.DateTime
	}
	return d
}

// EventView is an event plus its display status.
// swagger:model EventView
type EventView struct {
	*domain.Event
	Status string `json:"status"`
}

// EventSuccessResponse is the success envelope for single-event responses.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsSuccessResponse is the success envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  []EventView       `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// DeleteEventResponse is the data payload for DELETE /events/{eventID}.
type DeleteEventResponse struct {
	Status string `json:"status"`
}

type EventController struct {
	Logger   *slog.Logger
	Store    domain.EventStore
	Notifier domain.EventNotifier
	Now      func() time.Time
}

func NewEventController(logger *slog.Logger, store domain.EventStore, notifier domain.EventNotifier) *EventController {
	return &EventController{
		Logger:   logger,
		Store:    store,
		Notifier: notifier,
		Now:      time.Now,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Returns all events in stored order. Each event carries status "upcoming" or "past" relative to the server clock.
// @Tags events
// @Produce json
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains the events"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := c.Store.List(r.Context())
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	now := c.Now()
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		status := StatusUpcoming
		if e.DateTime.Before(now) {
			status = StatusPast
		}
		views = append(views, EventView{Event: e, Status: status})
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, views)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Store.Get(r.Context(), eventID)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates an event. The id is server-generated. Fails with 409 when another event is scheduled within 60 minutes.
// @Tags events
// @Accept json
// @Produce json
// @Param event body EventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_failed"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict or concurrent_modification"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	draft := req.draft()
	if err := draft.Validate(); err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	event, err := c.Store.Create(r.Context(), draft)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	c.notify(r.Context(), domain.EventCreated, event.ID, event)
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Replace an event
// @Description Replaces every field of the event except its id. The event's own time never conflicts with itself.
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param event body EventRequest true "Event data"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_failed"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict or concurrent_modification"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [put]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req EventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	draft := req.draft()
	if err := draft.Validate(); err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	event, err := c.Store.Update(r.Context(), eventID, draft)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	c.notify(r.Context(), domain.EventUpdated, event.ID, event)
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes the event. Deleting an id that does not exist also succeeds.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status: deleted"
// @Failure 409 {object} helpers.APIResponse "error.code: concurrent_modification"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	removed, err := c.Store.Delete(r.Context(), eventID)
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	if removed != nil {
		c.notify(r.Context(), domain.EventDeleted, eventID, removed)
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{Status: "deleted"})
}

// ExportCalendar godoc
// @Summary Export events as iCalendar
// @Description Returns every event as a VEVENT lasting 60 minutes.
// @Tags events
// @Produce text/calendar
// @Success 200 {string} string "iCalendar feed"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendar.ics [get]
func (c *EventController) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := c.Store.List(r.Context())
	if err != nil {
		c.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ical.Export(events, c.Now())))
}

func (c *EventController) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &verr):
		helpers.WriteAPIError(w, http.StatusBadRequest, &helpers.APIError{
			Code:    helpers.ErrCodeValidationFailed,
			Message: verr.Message,
			Field:   verr.Field,
		})
	case errors.As(err, &conflict):
		helpers.WriteAPIError(w, http.StatusConflict, &helpers.APIError{
			Code:               helpers.ErrCodeConflict,
			Message:            conflict.Error(),
			ConflictingEventID: conflict.EventID,
		})
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
	case errors.Is(err, domain.ErrConcurrentModification):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConcurrentModification, "events were changed by another writer, reload and try again")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// notify reports a completed mutation. Failures are logged and never change the response.
func (c *EventController) notify(ctx context.Context, change domain.EventChange, eventID string, event *domain.Event) {
	if c.Notifier == nil {
		return
	}
	data := &domain.EventNoticeData{Change: change, Event: event, EventID: eventID}
	if err := c.Notifier.NotifyEventChange(ctx, data); err != nil {
		c.Logger.WarnContext(ctx, "event notice failed", "change", change, "event_id", eventID, "err", err)
	}
}
