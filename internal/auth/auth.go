// Package auth guards the merchant support API. Operators authenticate
// with either the configured dev token or a signed service token.
package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingBearer = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
)

type Claims struct {
	Subject string
	Issuer  string
}

type Authenticator interface {
	Authenticate(r *http.Request) (Claims, error)
}

// MultiAuthenticator accepts the static dev token first, then falls back
// to JWT verification when a secret is configured.
type MultiAuthenticator struct {
	DevToken string
	JWT      *JWTAuthenticator
}

func NewMultiAuthenticator(devToken, jwtSecret string) *MultiAuthenticator {
	a := &MultiAuthenticator{DevToken: devToken}
	if jwtSecret != "" {
		a.JWT = NewJWTAuthenticator(jwtSecret)
	}
	return a
}

func (a *MultiAuthenticator) Authenticate(r *http.Request) (Claims, error) {
	bearer, err := extractBearer(r)
	if err != nil {
		return Claims{}, err
	}

	if a.DevToken != "" && bearer == a.DevToken {
		return Claims{Subject: "dev", Issuer: "expresspay-dev"}, nil
	}

	if a.JWT != nil {
		return a.JWT.AuthenticateBearer(bearer)
	}

	return Claims{}, ErrInvalidToken
}

func extractBearer(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingBearer
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
