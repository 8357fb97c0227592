package domain

import (
	"context"
	"time"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanBasic Plan = "basic"
	PlanPlus  Plan = "plus"
	PlanPro   Plan = "pro"
	PlanAdmin Plan = "admin"
)

// Valid reports whether p is a known tier.
func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanPlus, PlanPro, PlanAdmin:
		return true
	}
	return false
}

// Subscription statuses written by the billing synchronizer. Provider statuses
// (trialing, past_due, ...) are stored verbatim.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// Profile is a user's account and billing record, keyed by the auth identity.
// Plan and subscription fields are written only by the billing service.
// swagger:model Profile
type Profile struct {
	ID                 string     `json:"id"`
	Username           *string    `json:"username"`
	AvatarURL          *string    `json:"avatar_url"`
	Plan               *Plan      `json:"plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	StripeCustomerID   *string    `json:"stripe_customer_id"`
	RenewalType        *string    `json:"renewal_type"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// BillingUpdate is the set of billing fields applied to a profile matched by customer id.
// A nil CurrentPeriodEnd keeps the stored value unless ClearPeriodEnd is set.
// A nil RenewalType keeps the stored value. Plan is always written (nil stores NULL).
type BillingUpdate struct {
	Status           string
	Plan             *Plan
	CurrentPeriodEnd *time.Time
	ClearPeriodEnd   bool
	RenewalType      *string
}

// ProfileRepository defines the interface for profile storage.
type ProfileRepository interface {
	// Ensure inserts a basic/inactive profile for id when none exists and returns the stored row.
	Ensure(ctx context.Context, id string) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	UpdatePublic(ctx context.Context, id string, username, avatarURL *string) (*Profile, error)
	SetCustomerID(ctx context.Context, id, customerID string) error
	UpdateBillingByCustomerID(ctx context.Context, customerID string, upd BillingUpdate) error
}

// ProfileService exposes the caller's own profile.
type ProfileService interface {
	EnsureProfile(ctx context.Context, userID string) (*Profile, error)
	UpdatePublicProfile(ctx context.Context, userID string, username, avatarURL *string) (*Profile, error)
}
