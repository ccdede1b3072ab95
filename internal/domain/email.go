package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// EventCancelledEmailData holds data for the cancellation notice sent to registrants.
type EventCancelledEmailData struct {
	Email      string
	Name       string
	EventTitle string
	StartsAt   time.Time
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendEventCancelled(ctx context.Context, data *EventCancelledEmailData) error
}
