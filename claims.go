package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims is the read side of a verified access token. It is a pure
// function of the token string and the signing key; no store is consulted.
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	DisplayName() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete claims bundle embedded in access tokens.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayedAs string `json:"display_name,omitempty"`
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the stable account identifier
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Username returns the unique username claim
func (c *JWTClaims) Username() string {
	return c.Name
}

// DisplayName returns the human readable name claim
func (c *JWTClaims) DisplayName() string {
	return c.DisplayedAs
}

// Expires returns the expiry instant, zero when absent
func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAt returns the issue instant, zero when absent
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// ensureTokenID backfills a unique jti so two tokens minted in the same
// second for the same subject still differ.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
