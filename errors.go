package sessions

import (
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials  = "session_invalid_credentials"
	TextCodeEmailNotConfirmed   = "session_email_not_confirmed"
	TextCodeTokenExpired        = "session_token_expired"
	TextCodeTokenMalformed      = "session_token_malformed"
	TextCodeRefreshInvalid      = "session_refresh_invalid"
	TextCodeRefreshReused       = "session_refresh_reused"
	TextCodeRefreshExpired      = "session_refresh_expired"
	TextCodeEmailTaken          = "session_email_taken"
	TextCodeUsernameTaken       = "session_username_taken"
	TextCodeVerificationFailed  = "session_verification_failed"
	TextCodeProviderRejected    = "session_provider_rejected"
	TextCodeProviderUnavailable = "session_provider_unavailable"
	TextCodeProvisioningFailed  = "session_provisioning_failed"
)

// ErrInvalidCredentials is returned for a bad email/password pair. The same
// error covers unknown accounts so the response does not leak which part
// was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrEmailNotConfirmed is returned when the account exists and the password
// matches but the email was never confirmed. A first class outcome, not a
// fault.
var ErrEmailNotConfirmed = errors.New("email not confirmed", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotConfirmed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for access tokens past their expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for access tokens that fail signature or
// structural checks.
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshTokenInvalid is returned when the presented refresh value was
// never issued to the account.
var ErrRefreshTokenInvalid = errors.New("refresh token invalid", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshTokenReused is returned when a revoked refresh token is
// presented again. Reuse of a revoked token signals possible theft; the
// ledger revokes the remainder of the chain before returning this.
var ErrRefreshTokenReused = errors.New("refresh token no longer active", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshReused).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshTokenExpired is returned when the presented refresh token aged
// out without ever being revoked. Unlike reuse, this does not cut the chain.
var ErrRefreshTokenExpired = errors.New("refresh token expired", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshExpired).
	WithCode(errors.CodeUnauthorized)

// ErrEmailTaken is a field level registration error.
var ErrEmailTaken = errors.New("email taken", errors.CategoryValidation).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict).
	WithMetadata(map[string]any{"field": "email"})

// ErrUsernameTaken is a field level registration error.
var ErrUsernameTaken = errors.New("username taken", errors.CategoryValidation).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(errors.CodeConflict).
	WithMetadata(map[string]any{"field": "username"})

// ErrCouldNotVerifyEmail is returned for a mismatched, expired, superseded,
// or already consumed confirmation secret. Recoverable: the caller may
// request a fresh link.
var ErrCouldNotVerifyEmail = errors.New("could not verify email address", errors.CategoryValidation).
	WithTextCode(TextCodeVerificationFailed).
	WithCode(errors.CodeBadRequest)

// ErrProviderRejected is returned when the identity provider refuses the
// presented access token. Terminal for the request.
var ErrProviderRejected = errors.New("provider rejected access token", errors.CategoryAuth).
	WithTextCode(TextCodeProviderRejected).
	WithCode(errors.CodeUnauthorized)

// ErrProviderUnavailable is returned for transient provider failures during
// verification or profile fetch. Safe to retry.
var ErrProviderUnavailable = errors.New("provider unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeProviderUnavailable).
	WithCode(errors.CodeInternal).
	WithMetadata(map[string]any{"retryable": true})

// ErrAccountProvisioning is returned when creating the account for a
// federated login fails at the store level.
var ErrAccountProvisioning = errors.New("problem creating user account", errors.CategoryConflict).
	WithTextCode(TextCodeProvisioningFailed).
	WithCode(errors.CodeConflict)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = stderrors.New("password must not be empty")

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = stderrors.New("credentials do not match")

// ErrUnableToFindSession is returned when the request carries no session.
var ErrUnableToFindSession = stderrors.New("unable to find session")

// ErrUnableToDecodeSession is returned when the session token cannot be
// decoded from the transport.
var ErrUnableToDecodeSession = stderrors.New("unable to decode session")

// IsUnauthorized reports whether err belongs to the auth category, meaning
// the request is terminal and must not be retried with the same input.
func IsUnauthorized(err error) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryAuth
	}
	return false
}

// IsValidationError reports whether err carries user correctable,
// field level feedback.
func IsValidationError(err error) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryValidation
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
