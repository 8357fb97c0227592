package services

import (
	"context"
	"testing"
	"time"

	"meetsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trophyByCode(st *domain.TrophyStats, code string) domain.Trophy {
	for _, tr := range st.Trophies {
		if tr.Code == code {
			return tr
		}
	}
	return domain.Trophy{}
}

func TestComputeTrophyStats(t *testing.T) {
	paid := 10.0
	zero := 0.0
	mk := func(country, city string, price *float64, public bool) *domain.Event {
		return domain.NewEvent("e", time.Now(), country, city, "", price, public, false, "user-1", time.Now())
	}

	t.Run("no activity", func(t *testing.T) {
		st := ComputeTrophyStats(nil, 0)
		assert.Len(t, st.Trophies, 9)
		for _, tr := range st.Trophies {
			assert.False(t, tr.Unlocked, tr.Code)
			assert.Zero(t, tr.Progress)
		}
	})

	t.Run("mixed activity", func(t *testing.T) {
		events := []*domain.Event{
			mk("France", "Lyon", nil, true),
			mk("france", "LYON", &zero, true),
			mk("Spain", "Madrid", &paid, true),
			mk("Italy", "Rome", nil, false),
			mk("France", "Paris", nil, false),
		}
		st := ComputeTrophyStats(events, 7)

		assert.Equal(t, 5, st.EventsCreated)
		assert.Equal(t, 3, st.Countries)
		assert.Equal(t, 4, st.Cities)
		assert.Equal(t, 4, st.FreeEvents)
		assert.Equal(t, 1, st.PaidEvents)
		assert.Equal(t, 3, st.PublicEvents)

		assert.True(t, trophyByCode(st, "first_event").Unlocked)
		assert.True(t, trophyByCode(st, "event_planner").Unlocked)
		master := trophyByCode(st, "event_master")
		assert.False(t, master.Unlocked)
		assert.Equal(t, 5, master.Progress)
		assert.Equal(t, 20, master.Target)
		assert.True(t, trophyByCode(st, "globetrotter").Unlocked)
		assert.False(t, trophyByCode(st, "city_hopper").Unlocked)
		assert.True(t, trophyByCode(st, "generous_host").Unlocked)
		assert.True(t, trophyByCode(st, "premium_host").Unlocked)
		assert.True(t, trophyByCode(st, "public_figure").Unlocked)
		butterfly := trophyByCode(st, "social_butterfly")
		assert.True(t, butterfly.Unlocked)
		assert.Equal(t, 5, butterfly.Progress, "progress is capped at target")
	})
}

func TestTrophyService_Stats(t *testing.T) {
	ctx := context.Background()
	events := newFakeEventRepo()
	invites := newFakeInvitationRepo()
	svc := NewTrophyService(events, invites, time.Second)

	events.add(domain.NewEvent("e", time.Now(), "France", "Lyon", "", nil, true, false, "user-1", time.Now()))
	uid := "user-1"
	invites.rows = append(invites.rows, &domain.Invitation{ID: "inv-1", EventID: "ev-other", UserID: &uid, Status: domain.StatusAccepted})
	invites.rows = append(invites.rows, &domain.Invitation{ID: "inv-2", EventID: "ev-other-2", UserID: &uid, Status: domain.StatusWaiting})

	st, err := svc.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.EventsCreated)
	assert.Equal(t, 1, st.AcceptedInvitations)
	assert.True(t, trophyByCode(st, "first_event").Unlocked)

	events.err = errBoom
	_, err = svc.Stats(ctx, "user-1")
	require.ErrorIs(t, err, errBoom)
}
