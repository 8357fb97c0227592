package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetsync/internal/delivery/http/controllers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
)

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(string) (domain.Identity, error) {
	return domain.Identity{}, errors.New("rejected")
}

type ackBilling struct{ domain.BillingService }

func (ackBilling) HandleWebhook(context.Context, []byte, string) error { return nil }

func newTestRouter() *http.ServeMux {
	logger := slog.New(slog.DiscardHandler)
	return NewRouter(Controllers{
		Events:        controllers.NewEventController(logger, nil),
		Invitations:   controllers.NewInvitationController(logger, nil),
		Profiles:      controllers.NewProfileController(logger, nil, nil),
		Notifications: controllers.NewNotificationController(logger, nil, nil, "http://localhost:3000"),
		Billing:       controllers.NewBillingController(logger, ackBilling{}),
		Realtime:      controllers.NewRealtimeController(logger, nil, middleware.NewOriginSet(nil)),
	}, RouterConfig{Verifier: rejectingVerifier{}, Logger: logger, RateLimitPerMinute: 30})
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	mux := newTestRouter()
	routes := []struct {
		method, path string
		legacy       bool
	}{
		{method: http.MethodPost, path: "/events"},
		{method: http.MethodGet, path: "/events"},
		{method: http.MethodGet, path: "/events/0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11"},
		{method: http.MethodPatch, path: "/events/0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11/banner"},
		{method: http.MethodGet, path: "/me/events"},
		{method: http.MethodGet, path: "/me/profile"},
		{method: http.MethodPatch, path: "/me/profile"},
		{method: http.MethodGet, path: "/me/trophies"},
		{method: http.MethodGet, path: "/events/0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11/invitations"},
		{method: http.MethodPost, path: "/events/0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11/invitations"},
		{method: http.MethodDelete, path: "/events/0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11/invitations/5c3e8f0a-2b6d-4e9a-8c1f-7d4b2a9e6f22"},
		{method: http.MethodPost, path: "/events/0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11/join"},
		{method: http.MethodPost, path: "/events/0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11/leave"},
		{method: http.MethodPatch, path: "/invitations/5c3e8f0a-2b6d-4e9a-8c1f-7d4b2a9e6f22"},
		{method: http.MethodGet, path: "/events/0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11/invitations/live"},
		{method: http.MethodPost, path: "/api/send-invitation", legacy: true},
		{method: http.MethodPost, path: "/api/send-invite-removed", legacy: true},
		{method: http.MethodPost, path: "/api/create-checkout-session", legacy: true},
		{method: http.MethodPost, path: "/api/create-customer-portal-session", legacy: true},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, strings.NewReader(`{}`))
			req.Header.Set("Authorization", "Bearer forged")
			rr := httptest.NewRecorder()

			mux.ServeHTTP(rr, req)

			require.Equal(t, http.StatusUnauthorized, rr.Code)
			if rt.legacy {
				assert.JSONEq(t, `{"error":"invalid or expired token"}`, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), `"code":"unauthorized"`)
			}
		})
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	mux := newTestRouter()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rr.Code, "webhooks authenticate by signature, not bearer token")
	assert.JSONEq(t, `{"received":true}`, rr.Body.String())

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
