package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meetsync/internal/domain"
	"meetsync/internal/metrics"
)

type billingService struct {
	verifier       domain.WebhookVerifier
	provider       domain.BillingProvider
	profileRepo    domain.ProfileRepository
	catalog        *domain.PlanCatalog
	siteURL        string
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewBillingService returns the subscription state synchronizer.
func NewBillingService(
	verifier domain.WebhookVerifier,
	provider domain.BillingProvider,
	profileRepo domain.ProfileRepository,
	catalog *domain.PlanCatalog,
	siteURL string,
	logger *slog.Logger,
	timeout time.Duration,
) domain.BillingService {
	return &billingService{
		verifier:       verifier,
		provider:       provider,
		profileRepo:    profileRepo,
		catalog:        catalog,
		siteURL:        strings.TrimRight(siteURL, "/"),
		logger:         logger,
		contextTimeout: timeout,
	}
}

// HandleWebhook verifies and applies a provider event. Only signature failures are returned:
// once an event is verified, decoding and handling errors are logged and the event is
// acknowledged so the provider does not keep retrying it.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.verifier.Verify(payload, signature)
	if errors.Is(err, domain.ErrMalformedEvent) {
		id, typ := "", "unknown"
		if event != nil {
			id, typ = event.ID, event.Type
		}
		metrics.WebhookEvents.WithLabelValues(typ, metrics.OutcomeFailure).Inc()
		s.logger.ErrorContext(ctx, "webhook event not decoded", "event_id", id, "type", typ, "error", err)
		return nil
	}
	if err != nil {
		metrics.WebhookSignatureFailures.Inc()
		if !errors.Is(err, domain.ErrInvalidSignature) {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
		}
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	switch event.Type {
	case domain.EventCheckoutCompleted:
		err = s.syncCheckout(ctx, event.Checkout)
	case domain.EventSubscriptionUpdated:
		err = s.syncSubscription(ctx, event.Subscription)
	case domain.EventSubscriptionDeleted:
		err = s.downgrade(ctx, event.Subscription)
	default:
		metrics.WebhookEvents.WithLabelValues(event.Type, metrics.OutcomeIgnored).Inc()
		s.logger.DebugContext(ctx, "webhook event ignored", "event_id", event.ID, "type", event.Type)
		return nil
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(event.Type, metrics.OutcomeFailure).Inc()
		s.logger.ErrorContext(ctx, "webhook event not applied", "event_id", event.ID, "type", event.Type, "error", err)
		return nil
	}
	metrics.WebhookEvents.WithLabelValues(event.Type, metrics.OutcomeSuccess).Inc()
	s.logger.InfoContext(ctx, "webhook event applied", "event_id", event.ID, "type", event.Type)
	return nil
}

func (s *billingService) syncCheckout(ctx context.Context, c *domain.CheckoutCompleted) error {
	if c == nil {
		return fmt.Errorf("%w: checkout session missing", domain.ErrInvalidInput)
	}
	customerID := c.CustomerID
	if c.ClientReferenceID != "" {
		profile, err := s.profileRepo.Ensure(ctx, c.ClientReferenceID)
		if err != nil {
			return fmt.Errorf("ensure profile: %w", err)
		}
		if customerID == "" && profile.StripeCustomerID != nil {
			customerID = *profile.StripeCustomerID
		}
		if customerID == "" {
			customerID, err = s.provider.CreateCustomer(ctx, c.ClientReferenceID, c.CustomerEmail)
			if err != nil {
				return fmt.Errorf("create customer: %w", err)
			}
		}
		if profile.StripeCustomerID == nil || *profile.StripeCustomerID != customerID {
			if err := s.profileRepo.SetCustomerID(ctx, c.ClientReferenceID, customerID); err != nil {
				return fmt.Errorf("store customer id: %w", err)
			}
		}
	}
	if customerID == "" {
		return domain.ErrNoCustomer
	}
	if c.SubscriptionID == "" {
		return nil
	}

	sub, err := s.provider.GetSubscription(ctx, c.SubscriptionID)
	if err != nil {
		return fmt.Errorf("get subscription: %w", err)
	}
	return s.applySubscription(ctx, customerID, sub)
}

func (s *billingService) syncSubscription(ctx context.Context, sub *domain.SubscriptionSnapshot) error {
	if sub == nil || sub.CustomerID == "" {
		return domain.ErrNoCustomer
	}
	return s.applySubscription(ctx, sub.CustomerID, sub)
}

func (s *billingService) applySubscription(ctx context.Context, customerID string, sub *domain.SubscriptionSnapshot) error {
	upd := domain.BillingUpdate{
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
	if plan, ok := s.catalog.PlanForPrice(sub.PriceID); ok {
		upd.Plan = &plan
	} else {
		s.logger.WarnContext(ctx, "subscription price has no plan, storing null plan", "subscription_id", sub.ID, "price_id", sub.PriceID)
	}
	if sub.CurrentPeriodEnd == nil {
		s.logger.WarnContext(ctx, "subscription period end missing, keeping stored value", "subscription_id", sub.ID)
	}
	if sub.RenewalType != "" {
		renewal := sub.RenewalType
		upd.RenewalType = &renewal
	}
	if err := s.profileRepo.UpdateBillingByCustomerID(ctx, customerID, upd); err != nil {
		return fmt.Errorf("update profile billing: %w", err)
	}
	return nil
}

func (s *billingService) downgrade(ctx context.Context, sub *domain.SubscriptionSnapshot) error {
	if sub == nil || sub.CustomerID == "" {
		return domain.ErrNoCustomer
	}
	basic := domain.PlanBasic
	upd := domain.BillingUpdate{
		Status:         domain.SubscriptionInactive,
		Plan:           &basic,
		ClearPeriodEnd: true,
	}
	if err := s.profileRepo.UpdateBillingByCustomerID(ctx, sub.CustomerID, upd); err != nil {
		return fmt.Errorf("downgrade profile: %w", err)
	}
	return nil
}

// CreateCheckoutSession starts a subscription checkout for a paid plan and returns its URL.
// The caller's customer id is created and stored on first checkout.
func (s *billingService) CreateCheckoutSession(ctx context.Context, caller domain.Identity, plan domain.Plan) (string, error) {
	if caller.UserID == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	priceID, ok := s.catalog.PriceForPlan(plan)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownPlan, plan)
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile, err := s.profileRepo.Ensure(ctx, caller.UserID)
	if err != nil {
		return "", fmt.Errorf("ensure profile: %w", err)
	}
	var customerID string
	if profile.StripeCustomerID != nil {
		customerID = *profile.StripeCustomerID
	} else {
		customerID, err = s.provider.CreateCustomer(ctx, caller.UserID, caller.Email)
		if err != nil {
			return "", fmt.Errorf("create customer: %w", err)
		}
		if err := s.profileRepo.SetCustomerID(ctx, caller.UserID, customerID); err != nil {
			return "", fmt.Errorf("store customer id: %w", err)
		}
	}

	url, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     caller.UserID,
		Plan:       plan,
		SuccessURL: s.siteURL + "/profile?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.siteURL + "/pricing?checkout=cancelled",
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return url, nil
}

// CreatePortalSession returns a billing portal URL for a user who already has a customer id.
func (s *billingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNoCustomer
		}
		return "", fmt.Errorf("get profile: %w", err)
	}
	if profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		return "", domain.ErrNoCustomer
	}
	url, err := s.provider.CreatePortalSession(ctx, *profile.StripeCustomerID, s.siteURL+"/profile")
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return url, nil
}
