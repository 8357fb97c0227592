package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meetsync/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.OwnerID == "" {
		return fmt.Errorf("%w: event owner is required", domain.ErrInvalidInput)
	}
	event.Name = strings.TrimSpace(event.Name)
	event.Country = strings.TrimSpace(event.Country)
	event.City = strings.TrimSpace(event.City)
	event.Address = strings.TrimSpace(event.Address)
	switch {
	case event.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	case event.Date.IsZero():
		return fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	case event.Country == "" || event.City == "":
		return fmt.Errorf("%w: country and city are required", domain.ErrInvalidInput)
	case event.Price != nil && *event.Price < 0:
		return fmt.Errorf("%w: price cannot be negative", domain.ErrInvalidInput)
	}

	event.CreatedAt = time.Now().UTC()
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) DiscoverEvents(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.eventRepo.ListPublic(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list public events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

func (s *eventService) ListMyEvents(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

// UpdateBanner replaces the banner of an event. Only the owner may change it; nil clears it.
func (s *eventService) UpdateBanner(ctx context.Context, eventID, ownerID string, bannerURL *string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	if bannerURL != nil && strings.TrimSpace(*bannerURL) == "" {
		bannerURL = nil
	}
	updated, err := s.eventRepo.UpdateBanner(ctx, eventID, bannerURL)
	if err != nil {
		return nil, fmt.Errorf("update banner: %w", err)
	}
	return updated, nil
}
