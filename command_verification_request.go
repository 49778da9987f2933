package sessions

import (
	"context"
	"fmt"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type EmailVerificationRequestMessage struct {
	Email string `json:"email"`
	// Origin is the base URL for the verification link, e.g. the client
	// application origin that initiated the request.
	Origin string `json:"origin"`
}

func (e EmailVerificationRequestMessage) Type() string { return "user.verification_request" }

// EmailVerificationRequestHandler mints a single-use confirmation secret
// and delivers the verification link. Safe to invoke repeatedly: each call
// produces a fresh secret and supersedes earlier unconsumed ones, it never
// locks the account.
type EmailVerificationRequestHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	lifetime time.Duration
	logger   Logger
}

func NewEmailVerificationRequestHandler(repo RepositoryManager, mailer Mailer, cfg Config) *EmailVerificationRequestHandler {
	lifetime := time.Duration(cfg.GetVerificationTokenDuration()) * time.Hour
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	return &EmailVerificationRequestHandler{
		repo:     repo,
		mailer:   mailer,
		lifetime: lifetime,
		logger:   defLogger{},
	}
}

func (h *EmailVerificationRequestHandler) WithLogger(logger Logger) *EmailVerificationRequestHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *EmailVerificationRequestHandler) Execute(ctx context.Context, event EmailVerificationRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification request")
	default:
		return h.execute(ctx, event)
	}
}

func (h *EmailVerificationRequestHandler) execute(ctx context.Context, event EmailVerificationRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	var secret string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidCredentials
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for verification")
		}

		_, secret, err = h.repo.EmailVerifications().IssueTx(ctx, tx, user.ID, h.lifetime)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue confirmation secret")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification request transaction failed")
	}

	// The mailer call is blocking I/O and runs with no lock or transaction
	// held; a failure here leaves account state intact.
	link := BuildVerificationLink(event.Origin, secret, user.Email)
	body := fmt.Sprintf(
		"<p>Please click the below link to verify your email address:</p><p><a href='%s'>Click to verify email</a></p>",
		link,
	)

	if err := h.mailer.Send(ctx, user.Email, "Please verify email", body); err != nil {
		h.logger.Error("verification email delivery failed", "email", user.Email, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver verification email")
	}

	return nil
}

// BuildVerificationLink embeds the URL safe encoded secret and the account
// email in a link under origin.
func BuildVerificationLink(origin, secret, email string) string {
	q := url.Values{}
	q.Set("token", EncodeLinkToken(secret))
	q.Set("email", email)

	return fmt.Sprintf("%s/verify?%s", origin, q.Encode())
}
