package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

const accessTokenType = "access"

// TokenClaims identify the user and web session behind an API access token.
type TokenClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. Tokens expire after ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed access token and its expiry.
func (i *Issuer) Issue(userID, sessionID string) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)

	claims := &TokenClaims{
		UserID:    userID,
		SessionID: sessionID,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a token and returns its claims.
func (i *Issuer) Verify(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TokenType != accessTokenType || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
