package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventmanager/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendEventCancelled notifies a registrant that an event was cancelled using the "event_cancelled" template.
func (s *emailService) SendEventCancelled(ctx context.Context, data *domain.EventCancelledEmailData) error {
	if data == nil {
		return fmt.Errorf("event cancelled data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("event_cancelled", data)
	if err != nil {
		return fmt.Errorf("failed to render event_cancelled template: %w", err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send event cancelled email: %w", err)
	}
	s.logger.InfoContext(ctx, "event cancelled email sent", "to", data.Email)
	return nil
}
