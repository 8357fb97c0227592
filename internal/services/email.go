package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meetsync/internal/domain"
	"meetsync/internal/metrics"
)

// Email template names.
const (
	templateEventInvitation = "event_invitation"
	templateInviteRemoved   = "invite_removed"
)

// EventDateLayout is the human readable date format used in notification emails.
const EventDateLayout = "Monday, January 2, 2006 at 15:04"

// FormatEventDate formats t for notification emails.
func FormatEventDate(t time.Time) string {
	return t.Format(EventDateLayout)
}

// EventURL returns the deep link to an event page under siteURL.
func EventURL(siteURL, eventID string) string {
	return strings.TrimRight(siteURL, "/") + "/events/" + eventID
}

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
// Every attempt is counted in metrics.EmailsSent.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendEventInvitation sends the "event_invitation" email.
func (s *emailService) SendEventInvitation(ctx context.Context, data *domain.EventInvitationEmailData) error {
	if data == nil {
		return fmt.Errorf("event invitation data is nil")
	}
	err := s.send(ctx, templateEventInvitation, data.Email, data)
	metrics.RecordEmail(templateEventInvitation, err)
	return err
}

// SendInviteRemoved sends the "invite_removed" email.
func (s *emailService) SendInviteRemoved(ctx context.Context, data *domain.InviteRemovedEmailData) error {
	if data == nil {
		return fmt.Errorf("invite removed data is nil")
	}
	err := s.send(ctx, templateInviteRemoved, data.Email, data)
	metrics.RecordEmail(templateInviteRemoved, err)
	return err
}

func (s *emailService) send(ctx context.Context, template, to string, data any) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: recipient email is required", domain.ErrInvalidInput)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", template, err)
	}
	msg := domain.EmailMessage{To: to, Subject: subject, HTML: htmlBody, Text: textBody}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	s.logger.InfoContext(ctx, "email sent", "template", template, "to", to)
	return nil
}
