package sessions

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds session options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetRefreshTokenDuration() int
	GetVerificationTokenDuration() int
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetRefreshCookieName() string
}

// SessionManager is the facade the transport layer talks to. All durable
// state lives in the account store; the manager keeps none between calls.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*SessionBundle, error)
	Register(ctx context.Context, msg RegisterUserMessage) error
	ConfirmEmail(ctx context.Context, msg ConfirmEmailMessage) error
	ResendVerification(ctx context.Context, msg EmailVerificationRequestMessage) error
	RefreshSession(ctx context.Context, userID, presented string) (*SessionBundle, error)
	FederatedLogin(ctx context.Context, providerToken string) (*SessionBundle, error)
	CurrentSession(ctx context.Context, userID string) (*SessionBundle, error)
	TokenService() TokenService
}

// TokenService mints and verifies access tokens without a store lookup.
type TokenService interface {
	Generate(user *User) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(raw string) (AuthClaims, error)
}

// FederatedBridge validates a provider access token and resolves it to a
// local account, provisioning one on first login.
type FederatedBridge interface {
	Authenticate(ctx context.Context, providerToken string) (*User, error)
}

// Mailer delivers a message to a single recipient. Implementations are
// expected to be fire and forget from the caller's perspective; a delivery
// failure must not roll back the account mutation that preceded it.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// RefreshLedger owns the append-only refresh token list of an account.
type RefreshLedger interface {
	Issue(ctx context.Context, user *User) (*RefreshToken, error)
	Rotate(ctx context.Context, user *User, presented string) (*RefreshToken, error)
}

// DefaultLogger returns the stdout fallback logger used when the host
// application does not provide one.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSIONS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSIONS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSIONS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSIONS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// HardcodedConfig is a Config implementation for tests and small setups.
type HardcodedConfig struct {
	SigningKey                string
	TokenExpiration           int
	RefreshTokenDuration      int
	VerificationTokenDuration int
	Issuer                    string
	Audience                  []string
	ContextKey                string
	RefreshCookieName         string
}

func (c HardcodedConfig) GetSigningKey() string   { return c.SigningKey }
func (c HardcodedConfig) GetIssuer() string       { return c.Issuer }
func (c HardcodedConfig) GetAudience() []string   { return c.Audience }
func (c HardcodedConfig) GetTokenExpiration() int { return c.TokenExpiration }

func (c HardcodedConfig) GetRefreshTokenDuration() int {
	if c.RefreshTokenDuration == 0 {
		return int((7 * 24 * time.Hour).Hours())
	}
	return c.RefreshTokenDuration
}

func (c HardcodedConfig) GetVerificationTokenDuration() int {
	if c.VerificationTokenDuration == 0 {
		return 24
	}
	return c.VerificationTokenDuration
}

func (c HardcodedConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c HardcodedConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return "refresh_token"
	}
	return c.RefreshCookieName
}
