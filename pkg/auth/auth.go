// Package auth issues and verifies the signed credentials gating the
// management surface, and provides the request middleware that turns
// a credential into a caller identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mocknest/mocknest/pkg/model"
)

// DefaultTokenTTL is the credential lifetime issued at login and
// registration.
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken covers every verification failure: bad signature,
// wrong algorithm, expired, malformed.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the declared contents of a credential.
type Claims struct {
	ID       uint   `json:"id"`
	UID      int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies HS256 tokens against one
// server-held secret, fixed at construction.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator creates an Authenticator. A zero ttl falls back to
// DefaultTokenTTL.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured credential lifetime.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Issue mints a signed credential for the account.
func (a *Authenticator) Issue(u *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:       u.ID,
		UID:      u.UID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature and expiry and returns the declared
// claims. The signing algorithm is pinned to HS256; tokens signed any
// other way are rejected outright.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
