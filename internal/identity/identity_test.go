package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerify(t *testing.T) {
	verifier := NewVerifier("secret")
	token := signToken(t, "secret", Claims{
		Email:         "u1@example.org",
		EmailVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "auth0|u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	principal, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.UserID != "u1" {
		t.Fatalf("userID = %s, want u1", principal.UserID)
	}
	if principal.Email != "u1@example.org" || !principal.EmailVerified {
		t.Fatalf("principal = %+v", principal)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	verifier := NewVerifier("secret")
	token := signToken(t, "other", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "auth0|u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	verifier := NewVerifier("secret")
	token := signToken(t, "secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "auth0|u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	if _, err := verifier.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	verifier := NewVerifier("secret")
	token := signToken(t, "secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	verifier := NewVerifier("secret")
	if _, err := verifier.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDeNamespace(t *testing.T) {
	cases := map[string]string{
		"auth0|u1":          "u1",
		"google-oauth2|abc": "abc",
		"plain":             "plain",
		"a|b|c":             "c",
	}
	for in, want := range cases {
		if got := DeNamespace(in); got != want {
			t.Fatalf("DeNamespace(%q) = %q, want %q", in, got, want)
		}
	}
}
