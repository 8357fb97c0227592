package domain

import (
	"context"
	"strings"
	"time"
)

// InvitationStatus is the persisted state of an invitation. Removal deletes the row.
type InvitationStatus string

const (
	StatusWaiting  InvitationStatus = "waiting"
	StatusAccepted InvitationStatus = "accepted"
	StatusRefused  InvitationStatus = "refused"
)

// Valid reports whether s is one of the persisted statuses.
func (s InvitationStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// CanTransitionTo reports whether an invitee may move an invitation from s to next.
// Only waiting invitations can be answered, and only with accepted or refused.
func (s InvitationStatus) CanTransitionTo(next InvitationStatus) bool {
	return s == StatusWaiting && (next == StatusAccepted || next == StatusRefused)
}

// InvitationOrigin identifies how an invitation came to exist.
type InvitationOrigin int

const (
	// OriginOwnerInvite is an explicit invite sent by the event owner.
	OriginOwnerInvite InvitationOrigin = iota
	// OriginSelfJoin is a user joining a public event on their own.
	OriginSelfJoin
)

// InitialStatus is the status policy for new invitations: owner invites wait for the
// invitee's answer, self-joins are accepted immediately since joining implies consent.
func InitialStatus(origin InvitationOrigin) InvitationStatus {
	if origin == OriginSelfJoin {
		return StatusAccepted
	}
	return StatusWaiting
}

// Invitation links an event to an invitee.
// swagger:model Invitation
type Invitation struct {
	ID          string           `json:"id"`
	EventID     string           `json:"event_id"`
	Email       string           `json:"email"`
	UserID      *string          `json:"user_id"`
	MustPay     bool             `json:"must_pay"`
	Status      InvitationStatus `json:"status"`
	DisplayName *string          `json:"display_name"`
	AvatarURL   *string          `json:"avatar_url"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MatchesInvitee reports whether the caller identified by userID or email is this invitation's invitee.
func (i *Invitation) MatchesInvitee(userID, email string) bool {
	if userID != "" && i.UserID != nil && *i.UserID == userID {
		return true
	}
	email = NormalizeEmail(email)
	return email != "" && NormalizeEmail(i.Email) == email
}

// InviteResult is returned by an owner invite. EmailWarning is set when the invitation was
// stored but the notification email could not be sent.
type InviteResult struct {
	Invitation   *Invitation `json:"invitation"`
	EmailWarning string      `json:"email_warning,omitempty"`
}

// InvitationRepository defines storage operations for invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id string) (*Invitation, error)
	// ListByEventID returns invitations in insertion order, joined with invitee profiles.
	ListByEventID(ctx context.Context, eventID string) ([]*Invitation, error)
	FindForInvitee(ctx context.Context, eventID, userID, email string) (*Invitation, error)
	// UpdateResponse moves the invitation from status from to status to, binding the invitee's
	// user id and display fields. It returns ErrNotFound when no row is in status from.
	UpdateResponse(ctx context.Context, id string, from, to InvitationStatus, userID string, displayName, avatarURL *string) (*Invitation, error)
	// DeleteByID removes the single invitation matching id within eventID and returns it.
	DeleteByID(ctx context.Context, eventID, id string) (*Invitation, error)
	// DeleteForInvitee removes invitations of eventID matching userID or email.
	DeleteForInvitee(ctx context.Context, eventID, userID, email string) (int64, error)
	CountAcceptedByUser(ctx context.Context, userID string) (int, error)
}

// InvitationFeed fans out "invitations of this event changed" notifications.
// Subscribers re-fetch the full list when notified.
type InvitationFeed interface {
	Subscribe(eventID string, fn func()) (unsubscribe func())
	Publish(eventID string)
}

// InvitationService governs the invitation lifecycle of events.
type InvitationService interface {
	Invite(ctx context.Context, eventID, ownerID, email string, mustPay bool) (*InviteResult, error)
	Join(ctx context.Context, eventID string, caller Identity) (*Invitation, error)
	Respond(ctx context.Context, invitationID string, caller Identity, status InvitationStatus) (*Invitation, error)
	Cancel(ctx context.Context, eventID, invitationID, ownerID string) error
	Leave(ctx context.Context, eventID string, caller Identity) error
	List(ctx context.Context, eventID string, caller Identity) ([]*Invitation, error)
	Subscribe(eventID string, fn func()) (unsubscribe func())
}
