package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokenLedger issues and rotates the opaque refresh tokens of an
// account. Rotation is the only mutation path on existing tokens; a revoked
// token is never resurrected.
//
// Rotations for the same account are serialized through a keyed mutex on
// top of the store transaction, so two concurrent refresh calls cannot both
// observe the same token as active and double-issue.
type RefreshTokenLedger struct {
	repo     RepositoryManager
	lifetime time.Duration
	logger   Logger
	nowFn    func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

var _ RefreshLedger = (*RefreshTokenLedger)(nil)

// NewRefreshTokenLedger creates a ledger with the configured token lifetime.
func NewRefreshTokenLedger(repo RepositoryManager, cfg Config) *RefreshTokenLedger {
	lifetime := time.Duration(cfg.GetRefreshTokenDuration()) * time.Hour
	if lifetime <= 0 {
		lifetime = 7 * 24 * time.Hour
	}

	return &RefreshTokenLedger{
		repo:     repo,
		lifetime: lifetime,
		logger:   defLogger{},
		nowFn:    time.Now,
		locks:    map[uuid.UUID]*sync.Mutex{},
	}
}

func (l *RefreshTokenLedger) WithLogger(logger Logger) *RefreshTokenLedger {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// WithClock overrides the ledger clock. Expiry checks are lazy, computed
// from timestamps at call time; nothing is swept in the background.
func (l *RefreshTokenLedger) WithClock(now func() time.Time) *RefreshTokenLedger {
	if now != nil {
		l.nowFn = now
	}
	return l
}

// Lifetime returns the configured refresh token lifetime. The transport
// cookie should expire in lockstep.
func (l *RefreshTokenLedger) Lifetime() time.Duration {
	return l.lifetime
}

// Issue generates a fresh high entropy token, appends it to the account's
// list, and returns it. The raw value travels to the client once; the store
// row is the durable record.
func (l *RefreshTokenLedger) Issue(ctx context.Context, user *User) (*RefreshToken, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, errors.New("user must not be nil", errors.CategoryInternal)
	}

	unlock := l.lockAccount(user.ID)
	defer unlock()

	var issued *RefreshToken
	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		issued, err = l.issueTx(ctx, tx, user)
		return err
	})

	if err != nil {
		return nil, wrapPersistence(err, "failed to issue refresh token")
	}

	return issued, nil
}

// Rotate exchanges an active presented token for a brand-new one, revoking
// the presented token in the same transaction. Presenting a value that was
// never issued, or one already revoked or expired, fails Unauthorized and
// issues nothing. Reuse of a revoked token additionally revokes its
// successors: the chain is treated as compromised.
func (l *RefreshTokenLedger) Rotate(ctx context.Context, user *User, presented string) (*RefreshToken, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, errors.New("user must not be nil", errors.CategoryInternal)
	}

	if presented == "" {
		return nil, ErrRefreshTokenInvalid
	}

	unlock := l.lockAccount(user.ID)
	defer unlock()

	var issued *RefreshToken

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := l.nowFn()

		old, err := l.repo.RefreshTokens().GetByTokenTx(ctx, tx, user.ID, presented)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrRefreshTokenInvalid
			}
			return err
		}

		if !old.IsActive(now) {
			if !old.IsRevoked() {
				return ErrRefreshTokenExpired
			}

			revoked, chainErr := l.repo.RefreshTokens().RevokeSuccessorsTx(ctx, tx, old, now)
			if chainErr != nil {
				return chainErr
			}
			if revoked > 0 {
				l.logger.Warn("refresh token reuse detected, revoked successor chain",
					"user_id", user.ID.String(), "revoked", revoked)
			}
			return ErrRefreshTokenReused
		}

		issued, err = l.issueTx(ctx, tx, user)
		if err != nil {
			return err
		}

		return l.repo.RefreshTokens().RevokeTx(ctx, tx, old.ID, now, &issued.ID)
	})

	if err != nil {
		var rich *errors.Error
		if errors.As(err, &rich) && rich.Category == errors.CategoryAuth {
			return nil, err
		}
		return nil, wrapPersistence(err, "failed to rotate refresh token")
	}

	return issued, nil
}

func (l *RefreshTokenLedger) issueTx(ctx context.Context, tx bun.Tx, user *User) (*RefreshToken, error) {
	value, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := l.nowFn()
	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(l.lifetime),
	}

	return l.repo.RefreshTokens().CreateTx(ctx, tx, record)
}

// lockAccount serializes ledger mutations per account. Lock entries are
// kept for the life of the process; the set of hot accounts is bounded by
// concurrent sessions.
func (l *RefreshTokenLedger) lockAccount(id uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func wrapPersistence(err error, msg string) error {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}
