// Package payments adapts Stripe to the billing ports of the domain.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"meetsync/internal/domain"
)

// StripeProvider implements domain.BillingProvider with the Stripe API.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider returns a provider using secretKey. backends may be nil to use the
// default Stripe endpoints.
func NewStripeProvider(secretKey string, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, backends)}
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("user_id", userID)
	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return c.ID, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*domain.SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get subscription: %w", err)
	}
	return snapshotFromSubscription(sub), nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(req.CustomerID),
		ClientReferenceID: stripe.String(req.UserID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("plan", string(req.Plan))
	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return s.URL, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create portal session: %w", err)
	}
	return s.URL, nil
}

func snapshotFromSubscription(sub *stripe.Subscription) *domain.SubscriptionSnapshot {
	snap := &domain.SubscriptionSnapshot{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		snap.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		snap.CurrentPeriodEnd = &end
	}
	var interval string
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		snap.PriceID = price.ID
		if price.Recurring != nil {
			interval = string(price.Recurring.Interval)
		}
	}
	snap.RenewalType = renewalType(interval, sub.CancelAtPeriodEnd)
	return snap
}

// renewalType names how the subscription continues after the current period.
func renewalType(interval string, cancelAtPeriodEnd bool) string {
	if cancelAtPeriodEnd {
		return "cancel_at_period_end"
	}
	switch interval {
	case "month":
		return "monthly"
	case "year":
		return "yearly"
	}
	return interval
}
