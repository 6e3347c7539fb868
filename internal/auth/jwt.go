package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const serviceIssuer = "expresspay"

// JWTAuthenticator verifies HS256 service tokens minted by the operator
// tooling. Symmetric signing keeps token issuance a one-liner in the CLI.
type JWTAuthenticator struct {
	Secret []byte
	Issuer string
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{Secret: []byte(secret), Issuer: serviceIssuer}
}

func (a *JWTAuthenticator) AuthenticateBearer(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(a.Issuer),
		jwt.WithExpirationRequired(),
	)
	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.Secret, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{Subject: claims.Subject, Issuer: claims.Issuer}, nil
}

// Mint issues a service token for subject, valid for ttl. Used by the CLI
// so operators never handle the secret directly in requests.
func (a *JWTAuthenticator) Mint(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    a.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(a.Secret)
}
