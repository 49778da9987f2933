package sessions

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// GetRouterSession returns the verified claims the RequireSession
// middleware stored in the router locals.
func GetRouterSession(c router.Context, key string) (AuthClaims, error) {
	val := c.Locals(key)
	if val == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := val.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	return claims, nil
}

// RequireSession validates the bearer access token in the Authorization
// header and stores the claims in the router locals under contextKey and in
// the request context. No store lookup happens here; the token is self
// contained.
func RequireSession(validator TokenValidator, contextKey string, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = defaultSessionErrorHandler
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := bearerToken(ctx)
			if err != nil {
				return errorHandler(ctx, err)
			}

			claims, err := validator.Validate(raw)
			if err != nil {
				return errorHandler(ctx, err)
			}

			ctx.Locals(contextKey, claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return next(ctx)
		}
	}
}

func bearerToken(ctx router.Context) (string, error) {
	header := ctx.Header(router.HeaderAuthorization)
	if header == "" {
		return "", ErrUnableToFindSession
	}

	const scheme = "Bearer"
	if len(header) <= len(scheme)+1 || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", ErrUnableToDecodeSession
	}

	return strings.TrimSpace(header[len(scheme):]), nil
}

func defaultSessionErrorHandler(ctx router.Context, err error) error {
	var richErr *errors.Error

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if IsMalformedError(err) {
		richErr = ErrTokenMalformed
	} else {
		richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	return ctx.JSON(router.StatusUnauthorized, map[string]string{
		"error": richErr.Message,
	})
}

// SetRefreshCookie writes the rotating refresh credential as an HTTP-only
// cookie whose lifetime matches the token's.
func SetRefreshCookie(ctx router.Context, name, value string, expires time.Time) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ClearRefreshCookie expires the refresh cookie immediately.
func ClearRefreshCookie(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
