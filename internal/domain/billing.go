package domain

import (
	"context"
	"fmt"
	"time"
)

// Webhook event types handled by the billing synchronizer. Other types are acknowledged and ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// PlanCatalog is the static, injective mapping between paid plans and provider price ids.
type PlanCatalog struct {
	planToPrice map[Plan]string
	priceToPlan map[string]Plan
}

// NewPlanCatalog builds a catalog from plan→price pairs. Plans with an empty price are skipped.
// Two plans sharing a price id are rejected so that price→plan stays a function.
func NewPlanCatalog(prices map[Plan]string) (*PlanCatalog, error) {
	c := &PlanCatalog{
		planToPrice: make(map[Plan]string, len(prices)),
		priceToPlan: make(map[string]Plan, len(prices)),
	}
	for plan, price := range prices {
		if price == "" {
			continue
		}
		if !plan.Valid() {
			return nil, fmt.Errorf("plan catalog: %w: %q", ErrUnknownPlan, plan)
		}
		if other, dup := c.priceToPlan[price]; dup {
			return nil, fmt.Errorf("plan catalog: price %q mapped to both %q and %q", price, other, plan)
		}
		c.planToPrice[plan] = price
		c.priceToPlan[price] = plan
	}
	return c, nil
}

// PriceForPlan returns the provider price id for a paid plan.
func (c *PlanCatalog) PriceForPlan(plan Plan) (string, bool) {
	price, ok := c.planToPrice[plan]
	return price, ok
}

// PlanForPrice returns the plan for a price id. ok is false for unmapped prices.
func (c *PlanCatalog) PlanForPrice(priceID string) (plan Plan, ok bool) {
	plan, ok = c.priceToPlan[priceID]
	return plan, ok
}

// SubscriptionSnapshot is the provider's view of a subscription, reduced to the fields we store.
type SubscriptionSnapshot struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	CurrentPeriodEnd *time.Time
	RenewalType      string
}

// CheckoutCompleted carries the fields of a completed checkout session.
type CheckoutCompleted struct {
	SessionID         string
	CustomerID        string
	CustomerEmail     string
	SubscriptionID    string
	ClientReferenceID string
}

// WebhookEvent is a verified provider event. Checkout or Subscription is set according to Type.
type WebhookEvent struct {
	ID           string
	Type         string
	Checkout     *CheckoutCompleted
	Subscription *SubscriptionSnapshot
}

// WebhookVerifier checks a payload's signature and decodes it. It returns an error wrapping
// ErrInvalidSignature when the signature does not verify, and one wrapping ErrMalformedEvent,
// together with the event's id and type, when a verified payload cannot be decoded.
type WebhookVerifier interface {
	Verify(payload []byte, signature string) (*WebhookEvent, error)
}

// CheckoutRequest describes a subscription checkout session to create.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	UserID     string
	Plan       Plan
	SuccessURL string
	CancelURL  string
}

// BillingProvider is the payment processor port.
type BillingProvider interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// BillingService keeps profile billing state in sync with the payment provider.
type BillingService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	CreateCheckoutSession(ctx context.Context, caller Identity, plan Plan) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
}
