package federated

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-sessions"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// Config configures the federated authenticator.
type Config struct {
	// TrustProviderEmail marks provider-verified emails as confirmed on
	// provisioning, skipping the local confirmation flow. This is a
	// deliberate trust elevation, named so it reads as policy rather than
	// a side effect.
	TrustProviderEmail bool
}

// Authenticator resolves a provider access token to a local account. Login
// and registration collapse into one idempotent find-or-create keyed on the
// provider-verified email.
type Authenticator struct {
	provider Provider
	repo     sessions.RepositoryManager
	config   Config
	logger   sessions.Logger
}

var _ sessions.FederatedBridge = (*Authenticator)(nil)

// NewAuthenticator creates a federated authenticator for a single provider.
func NewAuthenticator(provider Provider, repo sessions.RepositoryManager, cfg Config) *Authenticator {
	return &Authenticator{
		provider: provider,
		repo:     repo,
		config:   cfg,
		logger:   sessions.DefaultLogger(),
	}
}

func (a *Authenticator) WithLogger(logger sessions.Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Authenticate verifies the token, fetches the profile, and finds or
// creates the local account. Verification and fetch failures abort before
// any account mutation.
func (a *Authenticator) Authenticate(ctx context.Context, accessToken string) (*sessions.User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, sessions.ErrProviderRejected
	}

	if err := a.provider.VerifyToken(ctx, accessToken); err != nil {
		if IsRejection(err) {
			a.logger.Info("provider rejected access token", "provider", a.provider.Name())
			return nil, sessions.ErrProviderRejected
		}
		a.logger.Error("provider verification unavailable", "provider", a.provider.Name(), "error", err)
		return nil, goerrors.Wrap(err, sessions.ErrProviderUnavailable.Category, sessions.ErrProviderUnavailable.Message).
			WithTextCode(sessions.ErrProviderUnavailable.TextCode)
	}

	profile, err := a.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		if IsRejection(err) {
			return nil, sessions.ErrProviderRejected
		}
		a.logger.Error("provider profile fetch failed", "provider", a.provider.Name(), "error", err)
		return nil, goerrors.Wrap(err, sessions.ErrProviderUnavailable.Category, sessions.ErrProviderUnavailable.Message).
			WithTextCode(sessions.ErrProviderUnavailable.TextCode)
	}

	if profile == nil || profile.Email == "" {
		return nil, sessions.ErrProviderRejected
	}

	user, err := a.repo.Users().GetByEmail(ctx, profile.Email)
	if err == nil {
		// Existing account: provider verification substitutes for the
		// password check, proceed straight to session establishment.
		return user, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account by email")
	}

	return a.provision(ctx, profile)
}

// provision creates a local account from a provider profile. The account
// gets a synthetic login-only credential: the local password path can never
// match it.
func (a *Authenticator) provision(ctx context.Context, profile *Profile) (*sessions.User, error) {
	user := &sessions.User{
		Username:       profile.Email,
		DisplayName:    profile.Name,
		Email:          profile.Email,
		ProfilePicture: profile.AvatarURL,
		PasswordHash:   sessions.RandomPasswordHash(),
		EmailValidated: a.config.TrustProviderEmail,
	}

	if id, err := hashid.NewUUID(profile.Email); err == nil {
		user.ID = id
	}

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := a.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created
		return nil
	})

	if err != nil {
		a.logger.Error("federated provisioning failed", "provider", profile.Provider, "error", err)
		return nil, goerrors.Wrap(err, sessions.ErrAccountProvisioning.Category, sessions.ErrAccountProvisioning.Message).
			WithTextCode(sessions.ErrAccountProvisioning.TextCode)
	}

	return user, nil
}
