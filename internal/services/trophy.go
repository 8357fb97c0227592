package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meetsync/internal/domain"
)

type trophyRule struct {
	code   string
	name   string
	target int
	value  func(st *domain.TrophyStats) int
}

// trophyRules are evaluated in order; the order is the display order.
var trophyRules = []trophyRule{
	{"first_event", "First Event", 1, func(st *domain.TrophyStats) int { return st.EventsCreated }},
	{"event_planner", "Event Planner", 5, func(st *domain.TrophyStats) int { return st.EventsCreated }},
	{"event_master", "Event Master", 20, func(st *domain.TrophyStats) int { return st.EventsCreated }},
	{"globetrotter", "Globetrotter", 3, func(st *domain.TrophyStats) int { return st.Countries }},
	{"city_hopper", "City Hopper", 5, func(st *domain.TrophyStats) int { return st.Cities }},
	{"generous_host", "Generous Host", 3, func(st *domain.TrophyStats) int { return st.FreeEvents }},
	{"premium_host", "Premium Host", 1, func(st *domain.TrophyStats) int { return st.PaidEvents }},
	{"public_figure", "Public Figure", 3, func(st *domain.TrophyStats) int { return st.PublicEvents }},
	{"social_butterfly", "Social Butterfly", 5, func(st *domain.TrophyStats) int { return st.AcceptedInvitations }},
}

type trophyService struct {
	eventRepo      domain.EventRepository
	invitationRepo domain.InvitationRepository
	contextTimeout time.Duration
}

func NewTrophyService(eventRepo domain.EventRepository, invitationRepo domain.InvitationRepository, timeout time.Duration) domain.TrophyService {
	return &trophyService{
		eventRepo:      eventRepo,
		invitationRepo: invitationRepo,
		contextTimeout: timeout,
	}
}

func (s *trophyService) Stats(ctx context.Context, userID string) (*domain.TrophyStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListByOwnerID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	accepted, err := s.invitationRepo.CountAcceptedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count accepted invitations: %w", err)
	}

	st := ComputeTrophyStats(events, accepted)
	return st, nil
}

// ComputeTrophyStats derives the counters and trophy progress from a user's owned events and
// the number of invitations they accepted. Countries and cities are compared case-insensitively.
func ComputeTrophyStats(events []*domain.Event, acceptedInvitations int) *domain.TrophyStats {
	st := &domain.TrophyStats{
		EventsCreated:       len(events),
		AcceptedInvitations: acceptedInvitations,
	}
	countries := make(map[string]struct{})
	cities := make(map[string]struct{})
	for _, e := range events {
		country := strings.ToLower(strings.TrimSpace(e.Country))
		if country != "" {
			countries[country] = struct{}{}
		}
		if city := strings.ToLower(strings.TrimSpace(e.City)); city != "" {
			cities[country+"/"+city] = struct{}{}
		}
		if e.IsPaid() {
			st.PaidEvents++
		} else {
			st.FreeEvents++
		}
		if e.IsPublic {
			st.PublicEvents++
		}
	}
	st.Countries = len(countries)
	st.Cities = len(cities)

	st.Trophies = make([]domain.Trophy, 0, len(trophyRules))
	for _, r := range trophyRules {
		v := r.value(st)
		st.Trophies = append(st.Trophies, domain.Trophy{
			Code:     r.code,
			Name:     r.name,
			Progress: min(v, r.target),
			Target:   r.target,
			Unlocked: v >= r.target,
		})
	}
	return st
}
