package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventboard/internal/domain"
)

type eventNotifier struct {
	mailer     domain.Mailer
	renderer   domain.EmailTemplateRenderer
	recipients []string
	logger     *slog.Logger
}

// NewEventNotifier returns an EventNotifier that emails every recipient using the
// "event_<change>" templates. With no recipients it does nothing.
func NewEventNotifier(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, recipients []string, logger *slog.Logger) domain.EventNotifier {
	return &eventNotifier{
		mailer:     mailer,
		renderer:   renderer,
		recipients: recipients,
		logger:     logger,
	}
}

func (n *eventNotifier) NotifyEventChange(ctx context.Context, data *domain.EventNoticeData) error {
	if data == nil {
		return fmt.Errorf("event notice data is nil")
	}
	if len(n.recipients) == 0 {
		return nil
	}
	templateName := "event_" + string(data.Change)
	subject, htmlBody, textBody, err := n.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	var errs []error
	for _, to := range n.recipients {
		if err := n.mailer.Send(ctx, to, subject, htmlBody, textBody); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
			continue
		}
		n.logger.InfoContext(ctx, "event notice sent", "to", to, "change", data.Change, "event_id", data.EventID)
	}
	return errors.Join(errs...)
}
