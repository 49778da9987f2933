package sessions

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens persists the append-only refresh token ledger. Updates only
// ever set revoked_at and replaced_by_id; rows are never deleted.
type RefreshTokens interface {
	repository.Repository[*RefreshToken]

	CreateTx(ctx context.Context, tx bun.IDB, record *RefreshToken, criteria ...repository.InsertCriteria) (*RefreshToken, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*RefreshToken, error)
	ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*RefreshToken, error)
	RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time, replacedBy *uuid.UUID) error
	RevokeSuccessorsTx(ctx context.Context, tx bun.IDB, token *RefreshToken, at time.Time) (int, error)
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(t *RefreshToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *RefreshToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *refreshTokens) CreateTx(ctx context.Context, tx bun.IDB, record *RefreshToken, criteria ...repository.InsertCriteria) (*RefreshToken, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *refreshTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*RefreshToken, error) {
	record := &RefreshToken{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *refreshTokens) ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*RefreshToken, error) {
	var records []*RefreshToken

	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// RevokeTx stamps revoked_at exactly once. The guard keeps the transition
// monotonic: a token that is already revoked is left untouched.
func (r *refreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time, replacedBy *uuid.UUID) error {
	q := tx.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", at).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.revoked_at IS NULL")

	if replacedBy != nil {
		q = q.Set("replaced_by_id = ?", *replacedBy)
	}

	_, err := q.Exec(ctx)
	return err
}

// RevokeSuccessorsTx walks the replaced_by chain starting at token and
// revokes every still-active descendant. Used when a revoked token is
// presented again, which signals the chain may be stolen.
func (r *refreshTokens) RevokeSuccessorsTx(ctx context.Context, tx bun.IDB, token *RefreshToken, at time.Time) (int, error) {
	revoked := 0
	current := token

	for current != nil && current.ReplacedByID != nil {
		next := &RefreshToken{}
		err := tx.NewSelect().
			Model(next).
			Where("?TableAlias.id = ?", *current.ReplacedByID).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				break
			}
			return revoked, err
		}

		if !next.IsRevoked() {
			if err := r.RevokeTx(ctx, tx, next.ID, at, nil); err != nil {
				return revoked, err
			}
			revoked++
		}

		current = next
	}

	return revoked, nil
}
