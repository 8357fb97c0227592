package payments

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"meetsync/internal/domain"
)

// WebhookVerifier checks the Stripe-Signature header and decodes the handled event types.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewWebhookVerifier returns a verifier for endpoint secret whsec_... with Stripe's default tolerance.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

func (v *WebhookVerifier) Verify(payload []byte, signature string) (*domain.WebhookEvent, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", domain.ErrInvalidSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out := &domain.WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	switch out.Type {
	case domain.EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return out, fmt.Errorf("%w: decode checkout session: %v", domain.ErrMalformedEvent, err)
		}
		out.Checkout = checkoutFromSession(&cs)
	case domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var sp subscriptionPayload
		if err := json.Unmarshal(ev.Data.Raw, &sp); err != nil {
			return out, fmt.Errorf("%w: decode subscription: %v", domain.ErrMalformedEvent, err)
		}
		out.Subscription = sp.snapshot()
	}
	return out, nil
}

func checkoutFromSession(cs *stripe.CheckoutSession) *domain.CheckoutCompleted {
	c := &domain.CheckoutCompleted{
		SessionID:         cs.ID,
		ClientReferenceID: cs.ClientReferenceID,
		CustomerEmail:     cs.CustomerEmail,
	}
	if cs.Customer != nil {
		c.CustomerID = cs.Customer.ID
	}
	if c.CustomerEmail == "" && cs.CustomerDetails != nil {
		c.CustomerEmail = cs.CustomerDetails.Email
	}
	if cs.Subscription != nil {
		c.SubscriptionID = cs.Subscription.ID
	}
	return c
}

// subscriptionPayload is decoded leniently: period end fields that are missing or malformed
// decode to nil instead of failing the event.
type subscriptionPayload struct {
	ID                string          `json:"id"`
	Customer          expandableID    `json:"customer"`
	Status            string          `json:"status"`
	CancelAtPeriodEnd bool            `json:"cancel_at_period_end"`
	CurrentPeriodEnd  json.RawMessage `json:"current_period_end"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd json.RawMessage `json:"current_period_end"`
			Price            struct {
				ID        string `json:"id"`
				Recurring *struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (p *subscriptionPayload) snapshot() *domain.SubscriptionSnapshot {
	snap := &domain.SubscriptionSnapshot{
		ID:         p.ID,
		CustomerID: string(p.Customer),
		Status:     p.Status,
	}
	snap.CurrentPeriodEnd = parseUnixSeconds(p.CurrentPeriodEnd)
	var interval string
	if len(p.Items.Data) > 0 {
		item := p.Items.Data[0]
		snap.PriceID = item.Price.ID
		if item.Price.Recurring != nil {
			interval = item.Price.Recurring.Interval
		}
		// newer API versions report the period on the item
		if snap.CurrentPeriodEnd == nil {
			snap.CurrentPeriodEnd = parseUnixSeconds(item.CurrentPeriodEnd)
		}
	}
	snap.RenewalType = renewalType(interval, p.CancelAtPeriodEnd)
	return snap
}

// expandableID accepts either an id string or an expanded object with an id.
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

// parseUnixSeconds converts a seconds timestamp to UTC time. It returns nil for missing,
// null, non-numeric or non-positive values.
func parseUnixSeconds(raw json.RawMessage) *time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	secs, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || secs <= 0 {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}
