package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/domain"
)

func TestProfileController_GetMyProfile(t *testing.T) {
	basic := domain.PlanBasic
	fake := &fakeProfileService{profile: &domain.Profile{ID: guest.UserID, Plan: &basic, SubscriptionStatus: domain.SubscriptionInactive}}
	ctrl := NewProfileController(testLogger, fake, &fakeTrophyService{})
	req := withCaller(httptest.NewRequest(http.MethodGet, "/me/profile", nil), guest)
	rr := httptest.NewRecorder()

	ctrl.GetMyProfile(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var data domain.Profile
	decodeEnvelope(t, rr.Body, &data)
	require.NotNil(t, data.Plan)
	assert.Equal(t, domain.PlanBasic, *data.Plan)
	assert.Equal(t, guest.UserID, fake.lastUserID)
}

func TestProfileController_UpdateMyProfile(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		serviceErr  error
		wantStatus  int
		wantErrCode string
	}{
		{name: "username and avatar", body: `{"username":"neo","avatar_url":"https://cdn.example/neo.png"}`, wantStatus: http.StatusOK},
		{name: "billing fields rejected", body: `{"plan":"pro"}`, wantStatus: http.StatusBadRequest, wantErrCode: helpers.ErrCodeBadRequest},
		{name: "bad avatar url", body: `{"avatar_url":"ftp://x"}`, wantStatus: http.StatusBadRequest, wantErrCode: helpers.ErrCodeBadRequest},
		{name: "blank username", body: `{"username":"  "}`, serviceErr: domain.ErrInvalidInput, wantStatus: http.StatusBadRequest, wantErrCode: helpers.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProfileService{err: tt.serviceErr, profile: &domain.Profile{ID: guest.UserID}}
			ctrl := NewProfileController(testLogger, fake, &fakeTrophyService{})
			req := withCaller(httptest.NewRequest(http.MethodPatch, "/me/profile", strings.NewReader(tt.body)), guest)
			rr := httptest.NewRecorder()

			ctrl.UpdateMyProfile(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			envelope := decodeEnvelope(t, rr.Body, nil)
			if tt.wantErrCode != "" {
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantErrCode, envelope.Error.Code)
				return
			}
			require.NotNil(t, fake.lastUsername)
			assert.Equal(t, "neo", *fake.lastUsername)
		})
	}
}

func TestProfileController_GetMyTrophies(t *testing.T) {
	trophies := &fakeTrophyService{stats: &domain.TrophyStats{
		EventsCreated: 1,
		Trophies:      []domain.Trophy{{Code: "first_event", Progress: 1, Target: 1, Unlocked: true}},
	}}
	ctrl := NewProfileController(testLogger, &fakeProfileService{}, trophies)
	req := withCaller(httptest.NewRequest(http.MethodGet, "/me/trophies", nil), owner)
	rr := httptest.NewRecorder()

	ctrl.GetMyTrophies(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var data domain.TrophyStats
	decodeEnvelope(t, rr.Body, &data)
	require.Len(t, data.Trophies, 1)
	assert.True(t, data.Trophies[0].Unlocked)
	assert.Equal(t, owner.UserID, trophies.lastUserID)

	trophies.err = errBoom
	rr = httptest.NewRecorder()
	ctrl.GetMyTrophies(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
