package sessions

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ConfirmEmailMessage struct {
	Email string `json:"email"`
	// Token is the URL safe encoded secret as it appeared in the link.
	Token string `json:"token"`
}

func (e ConfirmEmailMessage) Type() string { return "user.confirm_email" }

// ConfirmEmailHandler redeems a confirmation secret. Confirming an already
// confirmed account succeeds silently; a mismatched, expired, superseded or
// consumed secret fails with a recoverable validation error, distinct from
// the Unauthorized returned for an unknown email.
type ConfirmEmailHandler struct {
	repo  RepositoryManager
	nowFn func() time.Time
}

func NewConfirmEmailHandler(repo RepositoryManager) *ConfirmEmailHandler {
	return &ConfirmEmailHandler{
		repo:  repo,
		nowFn: time.Now,
	}
}

// WithClock overrides the handler clock.
func (h *ConfirmEmailHandler) WithClock(now func() time.Time) *ConfirmEmailHandler {
	if now != nil {
		h.nowFn = now
	}
	return h
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email confirmation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, event ConfirmEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	secret, err := DecodeLinkToken(event.Token)
	if err != nil {
		return ErrCouldNotVerifyEmail
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// Do not leak whether the email exists.
				return ErrInvalidCredentials
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for confirmation")
		}

		if user.EmailValidated {
			return nil
		}

		record, err := h.repo.EmailVerifications().GetCurrentTx(ctx, tx, user.ID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrCouldNotVerifyEmail
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve confirmation secret")
		}

		now := h.nowFn()
		if !record.IsUsable(now) || !SecretMatchesHash(secret, record.SecretHash) {
			return ErrCouldNotVerifyEmail
		}

		if err := h.repo.EmailVerifications().ConsumeTx(ctx, tx, record.ID, now); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume confirmation secret")
		}

		if err := h.repo.Users().MarkEmailValidatedTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email as validated")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email confirmation transaction failed")
	}

	return nil
}
