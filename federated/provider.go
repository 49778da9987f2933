// Package federated bridges third-party identity into local accounts: a
// provider-issued access token is verified server to server, the profile is
// fetched, and the result is folded into an existing account or used to
// provision a new one.
package federated

import "context"

// Provider is a third-party identity provider that can introspect its own
// access tokens and serve the owning profile.
type Provider interface {
	// Name returns the provider identifier (e.g. "facebook").
	Name() string

	// VerifyToken confirms with the provider, using the application's own
	// credential pair, that the client-supplied access token is authentic.
	// This runs before anything else: a forged token must never reach the
	// profile fetch or any account lookup.
	VerifyToken(ctx context.Context, accessToken string) error

	// FetchProfile returns the profile of the token's owner using the
	// already verified token.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// Profile is the normalized identity a provider vouches for. It is never
// persisted as its own entity; it is folded into an account.
type Profile struct {
	ProviderUserID string
	Provider       string
	Email          string
	Name           string
	AvatarURL      string
}
