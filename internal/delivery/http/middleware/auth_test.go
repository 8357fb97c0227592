package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/domain"
)

// fakeTokenVerifier implements domain.TokenVerifier for tests.
type fakeTokenVerifier struct {
	identity  domain.Identity
	err       error
	lastToken string
}

func (f *fakeTokenVerifier) Verify(token string) (domain.Identity, error) {
	f.lastToken = token
	if f.err != nil {
		return domain.Identity{}, f.err
	}
	return f.identity, nil
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	alice := domain.Identity{UserID: "user-123", Email: "alice@example.com"}

	tests := []struct {
		name         string
		authHeader   string
		query        string
		upgrade      bool
		verifier     *fakeTokenVerifier
		wantStatus   int
		wantBodyCode string
		nextCalled   bool
		wantToken    string
	}{
		{
			name:       "valid token sets context and calls next",
			authHeader: "Bearer valid-token",
			verifier:   &fakeTokenVerifier{identity: alice},
			wantStatus: http.StatusOK,
			nextCalled: true,
			wantToken:  "valid-token",
		},
		{
			name:         "missing authorization header",
			verifier:     &fakeTokenVerifier{identity: alice},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "invalid authorization format no Bearer prefix",
			authHeader:   "Basic abc",
			verifier:     &fakeTokenVerifier{identity: alice},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "empty token after Bearer",
			authHeader:   "Bearer ",
			verifier:     &fakeTokenVerifier{identity: alice},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "verifier returns error",
			authHeader:   "Bearer bad-token",
			verifier:     &fakeTokenVerifier{err: errors.New("invalid or expired token")},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:       "query token accepted on websocket upgrade",
			query:      "?access_token=ws-token",
			upgrade:    true,
			verifier:   &fakeTokenVerifier{identity: alice},
			wantStatus: http.StatusOK,
			nextCalled: true,
			wantToken:  "ws-token",
		},
		{
			name:         "query token ignored on plain requests",
			query:        "?access_token=ws-token",
			verifier:     &fakeTokenVerifier{identity: alice},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var captured domain.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				captured, _ = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			handler := RequireAuth(tt.verifier, logger)(next)

			req := httptest.NewRequest(http.MethodGet, "http://test/me/profile"+tt.query, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			rr := httptest.NewRecorder()

			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			assert.Equal(t, tt.nextCalled, nextCalled, "next handler called")
			if tt.nextCalled {
				assert.Equal(t, alice, captured, "identity in context")
				assert.Equal(t, tt.wantToken, tt.verifier.lastToken)
			}
			if tt.wantBodyCode != "" {
				var envelope helpers.APIResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
			}
		})
	}
}

func TestRequireAuthLegacy_FlatErrorBody(t *testing.T) {
	handler := RequireAuthLegacy(&fakeTokenVerifier{}, slog.New(slog.DiscardHandler))(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not be called")
	})
	req := httptest.NewRequest(http.MethodPost, "http://test/api/send-invitation", nil)
	rr := httptest.NewRecorder()

	handler(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, map[string]any{"error": "missing authorization header"}, body)
}

func TestUserIDFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://test/", nil)
	_, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)

	ctx := SetIdentity(req.Context(), domain.Identity{Email: "no-subject@example.com"})
	_, ok = UserIDFromContext(ctx)
	assert.False(t, ok, "identity without a user id is not authenticated")

	ctx = SetIdentity(req.Context(), domain.Identity{UserID: "user-1"})
	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}
