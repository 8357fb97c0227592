package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meetsync/internal/domain"
)

type profileService struct {
	profileRepo    domain.ProfileRepository
	contextTimeout time.Duration
}

func NewProfileService(profileRepo domain.ProfileRepository, timeout time.Duration) domain.ProfileService {
	return &profileService{profileRepo: profileRepo, contextTimeout: timeout}
}

// EnsureProfile returns the caller's profile, creating a basic/inactive one on first use.
func (s *profileService) EnsureProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p, err := s.profileRepo.Ensure(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return p, nil
}

// UpdatePublicProfile changes display fields only. Billing fields are owned by the billing service.
func (s *profileService) UpdatePublicProfile(ctx context.Context, userID string, username, avatarURL *string) (*domain.Profile, error) {
	if username != nil {
		trimmed := strings.TrimSpace(*username)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", domain.ErrInvalidInput)
		}
		username = &trimmed
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.profileRepo.Ensure(ctx, userID); err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	p, err := s.profileRepo.UpdatePublic(ctx, userID, username, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
