package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	h "meetsync/internal/delivery/http/helpers"
	"meetsync/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// accessTokenParam carries the token on websocket upgrades, where browsers cannot set headers.
const accessTokenParam = "access_token"

// SetIdentity returns a context with the caller identity set. Used by auth middleware.
func SetIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated caller from the context, if present.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok && id.UserID != ""
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

type unauthorizedWriter func(w http.ResponseWriter, message string)

func envelopeUnauthorized(w http.ResponseWriter, message string) {
	h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, message)
}

func legacyUnauthorized(w http.ResponseWriter, message string) {
	h.WriteLegacyError(w, http.StatusUnauthorized, message)
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the caller identity in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return requireAuth(verifier, logger, envelopeUnauthorized)
}

// RequireAuthLegacy is RequireAuth for the /api endpoints, which answer with a flat {"error": "..."} body.
func RequireAuthLegacy(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return requireAuth(verifier, logger, legacyUnauthorized)
}

func requireAuth(verifier domain.TokenVerifier, logger *slog.Logger, deny unauthorizedWriter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if msg != "" {
				deny(w, msg)
				return
			}
			id, err := verifier.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				deny(w, "invalid or expired token")
				return
			}
			r = r.WithContext(SetIdentity(r.Context(), id))
			next(w, r)
		}
	}
}

// bearerToken extracts the token, returning a non-empty message when the request carries none.
func bearerToken(r *http.Request) (token, message string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		if websocket.IsWebSocketUpgrade(r) {
			if t := strings.TrimSpace(r.URL.Query().Get(accessTokenParam)); t != "" {
				return t, ""
			}
		}
		return "", "missing authorization header"
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", "invalid authorization format"
	}
	token = strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", "missing token"
	}
	return token, ""
}
