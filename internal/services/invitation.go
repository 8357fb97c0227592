package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"meetsync/internal/domain"
	"meetsync/internal/metrics"
)

// emailWarning is reported to the owner when the invitation was stored but not delivered.
const emailWarning = "invitation saved, but the invitation email could not be sent"

type invitationService struct {
	eventRepo      domain.EventRepository
	invitationRepo domain.InvitationRepository
	profileRepo    domain.ProfileRepository
	emailService   domain.EmailService
	feed           domain.InvitationFeed
	siteURL        string
	logger         *slog.Logger
	contextTimeout time.Duration

	// background tracks detached notification sends.
	background sync.WaitGroup
}

// NewInvitationService returns the invitation lifecycle manager. Every mutation publishes the
// event id on feed after it is persisted.
func NewInvitationService(
	eventRepo domain.EventRepository,
	invitationRepo domain.InvitationRepository,
	profileRepo domain.ProfileRepository,
	emailService domain.EmailService,
	feed domain.InvitationFeed,
	siteURL string,
	logger *slog.Logger,
	timeout time.Duration,
) domain.InvitationService {
	return &invitationService{
		eventRepo:      eventRepo,
		invitationRepo: invitationRepo,
		profileRepo:    profileRepo,
		emailService:   emailService,
		feed:           feed,
		siteURL:        siteURL,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *invitationService) getEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *invitationService) ownedEvent(ctx context.Context, eventID, ownerID string) (*domain.Event, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ownerID == "" || event.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

// Invite creates a waiting invitation for email and sends the invitation email.
// A failed email does not undo the invitation; it is reported through InviteResult.EmailWarning.
func (s *invitationService) Invite(ctx context.Context, eventID, ownerID, email string, mustPay bool) (*domain.InviteResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.ownedEvent(ctx, eventID, ownerID)
	if err != nil {
		return nil, err
	}

	inv := &domain.Invitation{
		EventID:   event.ID,
		Email:     email,
		MustPay:   mustPay,
		Status:    domain.InitialStatus(domain.OriginOwnerInvite),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	s.feed.Publish(event.ID)
	metrics.InvitationTransitions.WithLabelValues("invite").Inc()

	result := &domain.InviteResult{Invitation: inv}
	data := &domain.EventInvitationEmailData{
		Email:         email,
		EventName:     event.Name,
		EventDate:     FormatEventDate(event.Date),
		EventLocation: event.Location(),
		EventURL:      EventURL(s.siteURL, event.ID),
	}
	if err := s.emailService.SendEventInvitation(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "invitation email failed", "event_id", event.ID, "invitation_id", inv.ID, "error", err)
		result.EmailWarning = emailWarning
	}
	return result, nil
}

// Join adds the caller to a public event as an accepted invitee.
func (s *invitationService) Join(ctx context.Context, eventID string, caller domain.Identity) (*domain.Invitation, error) {
	email := domain.NormalizeEmail(caller.Email)
	if caller.UserID == "" || email == "" {
		return nil, fmt.Errorf("%w: caller identity is incomplete", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsPublic {
		return nil, domain.ErrForbidden
	}
	if event.OwnerID == caller.UserID {
		return nil, fmt.Errorf("%w: the owner cannot join their own event", domain.ErrInvalidInput)
	}

	profile, err := s.profileRepo.Ensure(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	userID := caller.UserID
	inv := &domain.Invitation{
		EventID:     event.ID,
		Email:       email,
		UserID:      &userID,
		MustPay:     event.IsPaid(),
		Status:      domain.InitialStatus(domain.OriginSelfJoin),
		DisplayName: profile.Username,
		AvatarURL:   profile.AvatarURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	s.feed.Publish(event.ID)
	metrics.InvitationTransitions.WithLabelValues("join").Inc()
	return inv, nil
}

// Respond records the invitee's answer to a waiting invitation.
func (s *invitationService) Respond(ctx context.Context, invitationID string, caller domain.Identity, status domain.InvitationStatus) (*domain.Invitation, error) {
	if status != domain.StatusAccepted && status != domain.StatusRefused {
		return nil, fmt.Errorf("%w: status must be accepted or refused", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if !inv.MatchesInvitee(caller.UserID, caller.Email) {
		return nil, domain.ErrForbidden
	}
	if !inv.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, inv.Status, status)
	}

	var displayName, avatarURL *string
	if caller.UserID != "" {
		profile, err := s.profileRepo.Ensure(ctx, caller.UserID)
		if err != nil {
			return nil, fmt.Errorf("ensure profile: %w", err)
		}
		displayName, avatarURL = profile.Username, profile.AvatarURL
	}

	updated, err := s.invitationRepo.UpdateResponse(ctx, inv.ID, inv.Status, status, caller.UserID, displayName, avatarURL)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// answered or removed concurrently
			return nil, fmt.Errorf("%w: invitation is no longer waiting", domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("update invitation: %w", err)
	}
	s.feed.Publish(updated.EventID)
	metrics.InvitationTransitions.WithLabelValues(string(status)).Inc()
	return updated, nil
}

// Cancel removes one invitation of the owner's event and notifies the invitee.
// The cancellation email is sent in the background, bounded by the service timeout
// and detached from ctx; failures are logged and never returned.
func (s *invitationService) Cancel(ctx context.Context, eventID, invitationID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.ownedEvent(ctx, eventID, ownerID)
	if err != nil {
		return err
	}

	removed, err := s.invitationRepo.DeleteByID(ctx, event.ID, invitationID)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	s.feed.Publish(event.ID)
	metrics.InvitationTransitions.WithLabelValues("cancel").Inc()

	data := &domain.InviteRemovedEmailData{Email: removed.Email, EventName: event.Name}
	sendCtx := context.WithoutCancel(ctx)
	s.background.Go(func() {
		ctx, cancel := context.WithTimeout(sendCtx, s.contextTimeout)
		defer cancel()
		if err := s.emailService.SendInviteRemoved(ctx, data); err != nil {
			s.logger.WarnContext(ctx, "cancellation email failed", "event_id", event.ID, "invitation_id", removed.ID, "error", err)
		}
	})
	return nil
}

// Leave removes the caller's own invitations to an event, matched by user id or email.
func (s *invitationService) Leave(ctx context.Context, eventID string, caller domain.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.OwnerID == caller.UserID {
		return domain.ErrForbidden
	}

	n, err := s.invitationRepo.DeleteForInvitee(ctx, event.ID, caller.UserID, domain.NormalizeEmail(caller.Email))
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	s.feed.Publish(event.ID)
	metrics.InvitationTransitions.WithLabelValues("leave").Inc()
	return nil
}

// List returns the invitations of an event in insertion order. Private events are visible to
// the owner and to invitees only.
func (s *invitationService) List(ctx context.Context, eventID string, caller domain.Identity) ([]*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, event, caller); err != nil {
		return nil, err
	}
	invs, err := s.invitationRepo.ListByEventID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

// checkVisible allows public events, the owner, and anyone holding an invitation to the event.
func (s *invitationService) checkVisible(ctx context.Context, event *domain.Event, caller domain.Identity) error {
	if event.IsPublic || (caller.UserID != "" && event.OwnerID == caller.UserID) {
		return nil
	}
	email := domain.NormalizeEmail(caller.Email)
	if caller.UserID == "" && email == "" {
		return domain.ErrForbidden
	}
	if _, err := s.invitationRepo.FindForInvitee(ctx, event.ID, caller.UserID, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return fmt.Errorf("find invitee: %w", err)
	}
	return nil
}

func (s *invitationService) Subscribe(eventID string, fn func()) func() {
	return s.feed.Subscribe(eventID, fn)
}
