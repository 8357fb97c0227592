package domain

// Identity is the authenticated caller as asserted by the identity provider's token.
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier verifies a bearer token and returns the authenticated identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}
