package services

import (
	"context"
	"testing"
	"time"

	"meetsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_EnsureProfile(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProfileRepo()
	svc := NewProfileService(repo, time.Second)

	p, err := svc.EnsureProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanBasic, *p.Plan)
	assert.Equal(t, domain.SubscriptionInactive, p.SubscriptionStatus)

	pro := domain.PlanPro
	p.Plan = &pro
	again, err := svc.EnsureProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, *again.Plan, "existing profile must not be reset")

	_, err = svc.EnsureProfile(ctx, "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProfileService_UpdatePublicProfile(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProfileRepo()
	svc := NewProfileService(repo, time.Second)

	name := "  alice "
	p, err := svc.UpdatePublicProfile(ctx, "user-1", &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", *p.Username)
	assert.Nil(t, p.AvatarURL)
	assert.Equal(t, domain.PlanBasic, *p.Plan)

	blank := " "
	_, err = svc.UpdatePublicProfile(ctx, "user-1", &blank, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
