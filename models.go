package sessions

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. Accounts are created on registration or on
// first federated login and never deleted by this package.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID       `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username       string          `bun:"username,notnull,unique" json:"username,omitempty"`
	DisplayName    string          `bun:"display_name" json:"display_name,omitempty"`
	Email          string          `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string          `bun:"password_hash" json:"password_hash,omitempty"`
	EmailValidated bool            `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	ProfilePicture string          `bun:"profile_picture" json:"profile_picture,omitempty"`
	RefreshTokens  []*RefreshToken `bun:"rel:has-many,join:id=user_id" json:"refresh_tokens,omitempty"`
	CreatedAt      *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RefreshToken is one entry in an account's append-only refresh token list.
// Entries are never deleted; rotation marks them revoked and links the
// successor. RevokedAt is write once.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	ReplacedByID  *uuid.UUID `bun:"replaced_by_id,nullzero,type:uuid" json:"replaced_by_id,omitempty"`
}

// IsExpired reports whether the token is past its lifetime at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsRevoked reports whether the token was rotated away or revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token can still be exchanged. Expiry is a
// pure function of time, not a stored transition.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// EmailVerification holds one confirmation secret issued for an account.
// Only the SHA-256 hash of the secret is stored. A resend supersedes any
// prior unconsumed secret for the same account; only the newest verifies.
type EmailVerification struct {
	bun.BaseModel `bun:"table:email_verifications,alias:ev"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	SecretHash    string     `bun:"secret_hash,notnull" json:"-"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ConsumedAt    *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	SupersededAt  *time.Time `bun:"superseded_at,nullzero" json:"superseded_at,omitempty"`
}

// IsUsable reports whether the secret may still be redeemed at now.
func (v *EmailVerification) IsUsable(now time.Time) bool {
	return v.ConsumedAt == nil && v.SupersededAt == nil && now.Before(v.ExpiresAt)
}
