package sessions

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EmailVerifications is the confirmation secret store. Issuing a new secret
// supersedes any prior unconsumed one for the same account; only the newest
// secret redeems.
type EmailVerifications interface {
	repository.Repository[*EmailVerification]

	IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, lifetime time.Duration) (*EmailVerification, string, error)
	GetCurrentTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*EmailVerification, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
}

type emailVerifications struct {
	repository.Repository[*EmailVerification]
	db *bun.DB
}

var _ EmailVerifications = (*emailVerifications)(nil)

func NewEmailVerificationsRepository(db *bun.DB) EmailVerifications {
	repo := repository.NewRepository[*EmailVerification](db, repository.ModelHandlers[*EmailVerification]{
		NewRecord: func() *EmailVerification { return &EmailVerification{} },
		GetID: func(v *EmailVerification) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *EmailVerification, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
	})

	return &emailVerifications{
		Repository: repo,
		db:         db,
	}
}

// IssueTx mints a fresh secret for the account and marks earlier unconsumed
// secrets superseded. Returns the stored record plus the raw secret, which
// exists only in memory and in the delivered link.
func (r *emailVerifications) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, lifetime time.Duration) (*EmailVerification, string, error) {
	secret, err := GenerateOpaqueToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now()

	_, err = tx.NewUpdate().
		Model((*EmailVerification)(nil)).
		Set("superseded_at = ?", now).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.consumed_at IS NULL").
		Where("?TableAlias.superseded_at IS NULL").
		Exec(ctx)

	if err != nil {
		return nil, "", err
	}

	record := &EmailVerification{
		ID:         uuid.New(),
		UserID:     userID,
		SecretHash: HashSecret(secret),
		CreatedAt:  now,
		ExpiresAt:  now.Add(lifetime),
	}

	if record, err = r.Repository.CreateTx(ctx, tx, record); err != nil {
		return nil, "", err
	}

	return record, secret, nil
}

// GetCurrentTx returns the newest secret record for the account regardless
// of state; callers decide how an unusable record maps to an outcome.
func (r *emailVerifications) GetCurrentTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*EmailVerification, error) {
	record := &EmailVerification{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
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

func (r *emailVerifications) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*EmailVerification)(nil)).
		Set("consumed_at = ?", at).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.consumed_at IS NULL").
		Exec(ctx)

	return err
}
