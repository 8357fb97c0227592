package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"meetsync/internal/delivery/http/controllers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Events        *controllers.EventController
	Invitations   *controllers.InvitationController
	Profiles      *controllers.ProfileController
	Notifications *controllers.NotificationController
	Billing       *controllers.BillingController
	Realtime      *controllers.RealtimeController
}

// RouterConfig holds the cross-cutting settings of the router.
type RouterConfig struct {
	Verifier           domain.TokenVerifier
	Logger             *slog.Logger
	RateLimitPerMinute int
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)
	legacyAuth := middleware.RequireAuthLegacy(cfg.Verifier, cfg.Logger)
	limit := middleware.Limit(middleware.RateLimitByIP(cfg.RateLimitPerMinute, time.Minute))

	// Events
	mux.HandleFunc("POST /events", auth(c.Events.CreateEvent))
	mux.HandleFunc("GET /events", auth(c.Events.DiscoverEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(c.Events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}/banner", auth(c.Events.UpdateBanner))
	mux.HandleFunc("GET /me/events", auth(c.Events.ListMyEvents))

	// Invitations
	mux.HandleFunc("GET /events/{eventID}/invitations", auth(c.Invitations.ListInvitations))
	mux.HandleFunc("POST /events/{eventID}/invitations", auth(c.Invitations.Invite))
	mux.HandleFunc("DELETE /events/{eventID}/invitations/{invitationID}", auth(c.Invitations.CancelInvitation))
	mux.HandleFunc("POST /events/{eventID}/join", auth(c.Invitations.JoinEvent))
	mux.HandleFunc("POST /events/{eventID}/leave", auth(c.Invitations.LeaveEvent))
	mux.HandleFunc("PATCH /invitations/{invitationID}", auth(c.Invitations.RespondToInvitation))
	mux.HandleFunc("GET /events/{eventID}/invitations/live", auth(c.Realtime.LiveInvitations))

	// Profile
	mux.HandleFunc("GET /me/profile", auth(c.Profiles.GetMyProfile))
	mux.HandleFunc("PATCH /me/profile", auth(c.Profiles.UpdateMyProfile))
	mux.HandleFunc("GET /me/trophies", auth(c.Profiles.GetMyTrophies))

	// Legacy /api endpoints
	mux.HandleFunc("POST /api/send-invitation", limit(legacyAuth(c.Notifications.SendInvitation)))
	mux.HandleFunc("POST /api/send-invite-removed", limit(legacyAuth(c.Notifications.SendInviteRemoved)))
	mux.HandleFunc("POST /api/create-checkout-session", limit(legacyAuth(c.Billing.CreateCheckoutSession)))
	mux.HandleFunc("POST /api/create-customer-portal-session", limit(legacyAuth(c.Billing.CreatePortalSession)))
	mux.HandleFunc("POST /api/webhooks/stripe", c.Billing.StripeWebhook)

	// Operations
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
