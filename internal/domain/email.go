package domain

import "context"

// EmailMessage is a rendered message for a single recipient. Either body may be empty.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// EventInvitationEmailData holds data for the event invitation email.
type EventInvitationEmailData struct {
	Email         string
	EventName     string
	EventDate     string
	EventLocation string
	EventURL      string
}

// InviteRemovedEmailData holds data for the invitation cancellation email.
type InviteRemovedEmailData struct {
	Email     string
	EventName string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendEventInvitation(ctx context.Context, data *EventInvitationEmailData) error
	SendInviteRemoved(ctx context.Context, data *InviteRemovedEmailData) error
}
