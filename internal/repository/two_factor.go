package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loopauth/backend/internal/db"
	"github.com/loopauth/backend/internal/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type twoFactorConfirmationRepository struct {
	db *sqlx.DB
}

func newTwoFactorConfirmationRepository(db *sqlx.DB) *twoFactorConfirmationRepository {
	return &twoFactorConfirmationRepository{
		db: db,
	}
}

func (r *twoFactorConfirmationRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorConfirmation, error) {
	const op = "repository.twoFactorConfirmation.GetByUserID"

	const query = `
    SELECT id, user_id, created_at
    FROM two_factor_confirmation
    WHERE user_id = uuid_to_bin(?)
    `

	var confirmation domain.TwoFactorConfirmation
	if err := r.db.GetContext(ctx, &confirmation, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select two factor confirmation failed: %w", op, err)
	}

	return &confirmation, nil
}

func (r *twoFactorConfirmationRepository) Create(ctx context.Context, confirmation *domain.TwoFactorConfirmation) error {
	const op = "repository.twoFactorConfirmation.Create"

	// unique key on user_id keeps at most one pending confirmation per identity
	const query = `
    INSERT INTO two_factor_confirmation (id, user_id)
    VALUES (uuid_to_bin(:id), uuid_to_bin(:user_id))
    `

	if _, err := r.db.NamedExecContext(ctx, query, confirmation); err != nil {
		//nolint:errorlint
		if mysqlError, ok := err.(*mysql.MySQLError); ok && mysqlError.Number == db.DuplicateEntry {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("%s: insert two factor confirmation failed: %w", op, err)
	}

	return nil
}

// Delete reports whether this call consumed the confirmation. Two concurrent
// sign-ins racing for the same confirmation see exactly one true.
func (r *twoFactorConfirmationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "repository.twoFactorConfirmation.Delete"

	const query = `DELETE FROM two_factor_confirmation WHERE id = uuid_to_bin(?)`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("%s: delete two factor confirmation failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows == 1, nil
}
