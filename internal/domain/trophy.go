package domain

import "context"

// Trophy is a gamification badge derived from a user's activity.
// swagger:model Trophy
type Trophy struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Progress int    `json:"progress"`
	Target   int    `json:"target"`
	Unlocked bool   `json:"unlocked"`
}

// TrophyStats aggregates the activity counters trophies are computed from.
// swagger:model TrophyStats
type TrophyStats struct {
	EventsCreated       int      `json:"events_created"`
	Countries           int      `json:"countries"`
	Cities              int      `json:"cities"`
	FreeEvents          int      `json:"free_events"`
	PaidEvents          int      `json:"paid_events"`
	PublicEvents        int      `json:"public_events"`
	AcceptedInvitations int      `json:"accepted_invitations"`
	Trophies            []Trophy `json:"trophies"`
}

// TrophyService computes trophy stats for a user.
type TrophyService interface {
	Stats(ctx context.Context, userID string) (*TrophyStats, error)
}
