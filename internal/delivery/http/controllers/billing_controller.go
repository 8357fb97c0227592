package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
)

// maxWebhookBytes bounds webhook payloads; provider events are far smaller.
const maxWebhookBytes = 1 << 16

// CheckoutSessionRequest is the body of POST /api/create-checkout-session.
type CheckoutSessionRequest struct {
	PlanID string `json:"planId"`
	UserID string `json:"userId"`
}

// PortalSessionRequest is the body of POST /api/create-customer-portal-session.
type PortalSessionRequest struct {
	UserID string `json:"userId"`
}

// RedirectResponse is the {"url": ...} body returned by the checkout and portal endpoints.
type RedirectResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a verified webhook.
type WebhookResponse struct {
	Received bool `json:"received"`
}

type BillingController struct {
	Logger  *slog.Logger
	Service domain.BillingService
}

func NewBillingController(logger *slog.Logger, svc domain.BillingService) *BillingController {
	return &BillingController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateCheckoutSession godoc
// @Summary Start a subscription checkout
// @Description userId must be the caller. planId is plus or pro.
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CheckoutSessionRequest true "Plan and user"
// @Success 200 {object} controllers.RedirectResponse
// @Failure 400 {object} helpers.LegacyError
// @Failure 401 {object} helpers.LegacyError
// @Failure 403 {object} helpers.LegacyError
// @Failure 429 {object} helpers.LegacyError
// @Failure 500 {object} helpers.LegacyError
// @Router /api/create-checkout-session [post]
func (c *BillingController) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req CheckoutSessionRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlanID == "" || req.UserID == "" {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "planId and userId are required")
		return
	}
	caller, ok := c.callerMatching(w, r, req.UserID)
	if !ok {
		return
	}
	url, err := c.Service.CreateCheckoutSession(r.Context(), caller, domain.Plan(strings.ToLower(req.PlanID)))
	if err != nil {
		writeLegacyServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, RedirectResponse{URL: url})
}

// CreatePortalSession godoc
// @Summary Open the billing portal
// @Description userId must be the caller, who must already be a billing customer.
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PortalSessionRequest true "User"
// @Success 200 {object} controllers.RedirectResponse
// @Failure 400 {object} helpers.LegacyError
// @Failure 401 {object} helpers.LegacyError
// @Failure 403 {object} helpers.LegacyError
// @Failure 429 {object} helpers.LegacyError
// @Failure 500 {object} helpers.LegacyError
// @Router /api/create-customer-portal-session [post]
func (c *BillingController) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	var req PortalSessionRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "userId is required")
		return
	}
	caller, ok := c.callerMatching(w, r, req.UserID)
	if !ok {
		return
	}
	url, err := c.Service.CreatePortalSession(r.Context(), caller.UserID)
	if err != nil {
		writeLegacyServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, RedirectResponse{URL: url})
}

// StripeWebhook godoc
// @Summary Receive billing provider webhooks
// @Description Unauthenticated. The raw body is verified against the Stripe-Signature header before anything is applied.
// @Tags billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Provider signature"
// @Success 200 {object} controllers.WebhookResponse
// @Failure 400 {object} helpers.LegacyError
// @Router /api/webhooks/stripe [post]
func (c *BillingController) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := c.Service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			c.Logger.WarnContext(r.Context(), "webhook rejected", "err", err)
			helpers.WriteLegacyError(w, http.StatusBadRequest, "webhook signature verification failed")
			return
		}
		writeLegacyServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true})
}

// callerMatching returns the caller when it is the user named in the body, writing 401 or 403 otherwise.
func (c *BillingController) callerMatching(w http.ResponseWriter, r *http.Request, userID string) (domain.Identity, bool) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteLegacyError(w, http.StatusUnauthorized, "unauthorized")
		return domain.Identity{}, false
	}
	if caller.UserID != userID {
		helpers.WriteLegacyError(w, http.StatusForbidden, domain.ErrForbidden.Error())
		return domain.Identity{}, false
	}
	return caller, true
}
