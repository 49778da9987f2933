package sessions

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Auther orchestrates login, registration, refresh, and federated login.
// It keeps no state between requests; all durable state lives in the
// account store behind the RepositoryManager.
type Auther struct {
	repo         RepositoryManager
	ledger       RefreshLedger
	tokenService TokenService
	bridge       FederatedBridge
	register     *RegisterUserHandler
	verification *EmailVerificationRequestHandler
	confirm      *ConfirmEmailHandler
	logger       Logger
}

var _ SessionManager = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, mailer Mailer, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	verification := NewEmailVerificationRequestHandler(repo, mailer, cfg)

	return &Auther{
		repo:         repo,
		ledger:       NewRefreshTokenLedger(repo, cfg),
		tokenService: tokenService,
		register:     NewRegisterUserHandler(repo, verification),
		verification: verification,
		confirm:      NewConfirmEmailHandler(repo),
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithFederatedBridge wires the provider bridge used by FederatedLogin.
func (s *Auther) WithFederatedBridge(bridge FederatedBridge) *Auther {
	s.bridge = bridge
	return s
}

// WithRefreshLedger overrides the default ledger.
func (s *Auther) WithRefreshLedger(ledger RefreshLedger) *Auther {
	if ledger != nil {
		s.ledger = ledger
	}
	return s
}

// WithTokenService overrides the default token service.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login authenticates a local credential pair. An unconfirmed email rejects
// before the password is ever checked; both outcomes are Unauthorized.
func (s *Auther) Login(ctx context.Context, email, password string) (*SessionBundle, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Info("login rejected, unknown email", "email", email)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during login")
	}

	if !user.EmailValidated {
		s.logger.Info("login rejected, email not confirmed", "user_id", user.ID.String())
		return nil, ErrEmailNotConfirmed
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Info("login rejected, credential mismatch", "user_id", user.ID.String())
		return nil, ErrInvalidCredentials
	}

	return s.establishSession(ctx, user)
}

// Register creates an unconfirmed account and triggers the confirmation
// email. It never issues a session: the caller gets "pending confirmation".
func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage) error {
	return s.register.Execute(ctx, msg)
}

// ConfirmEmail consumes a verification secret and marks the account confirmed.
func (s *Auther) ConfirmEmail(ctx context.Context, msg ConfirmEmailMessage) error {
	return s.confirm.Execute(ctx, msg)
}

// ResendVerification issues a fresh verification secret and emails a new
// link. Any earlier unconsumed secret for the account stops working.
func (s *Auther) ResendVerification(ctx context.Context, msg EmailVerificationRequestMessage) error {
	return s.verification.Execute(ctx, msg)
}

// RefreshSession rotates the presented refresh token and mints a new access
// token for the same account. Any rotation failure is terminal for the
// request and issues nothing.
func (s *Auther) RefreshSession(ctx context.Context, userID, presented string) (*SessionBundle, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rotated, err := s.ledger.Rotate(ctx, user, presented)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokenService.Generate(user)
	if err != nil {
		return nil, err
	}

	return newSessionBundle(user, accessToken, rotated), nil
}

// FederatedLogin bridges a provider access token into a local session. The
// bridge aborts before any account mutation when verification fails.
func (s *Auther) FederatedLogin(ctx context.Context, providerToken string) (*SessionBundle, error) {
	if s.bridge == nil {
		return nil, errors.New("no federated bridge configured", errors.CategoryInternal)
	}

	user, err := s.bridge.Authenticate(ctx, providerToken)
	if err != nil {
		return nil, err
	}

	return s.establishSession(ctx, user)
}

// CurrentSession rebuilds the session bundle for an already authenticated
// caller and slides the refresh cookie by issuing a fresh token.
func (s *Auther) CurrentSession(ctx context.Context, userID string) (*SessionBundle, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.establishSession(ctx, user)
}

// establishSession is the shared success branch: issue a refresh token,
// mint an access token, shape the bundle.
func (s *Auther) establishSession(ctx context.Context, user *User) (*SessionBundle, error) {
	refresh, err := s.ledger.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokenService.Generate(user)
	if err != nil {
		return nil, err
	}

	return newSessionBundle(user, accessToken, refresh), nil
}

func (s *Auther) userByID(ctx context.Context, userID string) (*User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}

	return user, nil
}
