package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"meetsync/internal/domain"
)

// ErrInvalidToken is returned for tokens that fail parsing, signature or claim validation.
var ErrInvalidToken = errors.New("invalid token")

// jwtClaims are the claims issued by the identity provider: the user id in sub and the
// verified email address.
type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type jwtVerifier struct {
	secret   []byte
	audience string
}

// NewJWTVerifier returns a TokenVerifier for HS256 tokens signed with secret. When audience is
// non-empty the aud claim must contain it.
func NewJWTVerifier(secret, audience string) domain.TokenVerifier {
	return &jwtVerifier{secret: []byte(secret), audience: audience}
}

func (v *jwtVerifier) Verify(tokenString string) (domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	return domain.Identity{
		UserID: claims.Subject,
		Email:  domain.NormalizeEmail(claims.Email),
	}, nil
}
