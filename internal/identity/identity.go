// Package identity verifies bearer tokens issued by the external identity
// provider and extracts the authenticated principal.
package identity

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the token claims the provider issues.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller. UserID is the provider subject with
// the connection namespace stripped ("auth0|u1" becomes "u1").
type Principal struct {
	UserID        string
	Email         string
	EmailVerified bool
}

// Verifier validates HS256 bearer tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the principal it carries.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Principal{
		UserID:        DeNamespace(claims.Subject),
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// DeNamespace strips the provider connection prefix from a subject.
func DeNamespace(subject string) string {
	if i := strings.LastIndex(subject, "|"); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
