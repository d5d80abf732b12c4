package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loopauth/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type passwordResetTokenRepository struct {
	db *sqlx.DB
}

func newPasswordResetTokenRepository(db *sqlx.DB) *passwordResetTokenRepository {
	return &passwordResetTokenRepository{
		db: db,
	}
}

func (r *passwordResetTokenRepository) GetByToken(ctx context.Context, tokenValue string) (*domain.PasswordResetToken, error) {
	const op = "repository.passwordResetToken.GetByToken"

	const query = `
    SELECT id, email, token, expires_at, created_at
    FROM password_reset_token
    WHERE token = ?
    `

	var token domain.PasswordResetToken
	if err := r.db.GetContext(ctx, &token, query, tokenValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select password reset token failed: %w", op, err)
	}

	return &token, nil
}

func (r *passwordResetTokenRepository) Replace(ctx context.Context, token *domain.PasswordResetToken) error {
	const op = "repository.passwordResetToken.Replace"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx failed: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deleteQuery = `DELETE FROM password_reset_token WHERE email = ?`
	if _, err := tx.ExecContext(ctx, deleteQuery, token.Email); err != nil {
		return fmt.Errorf("%s: delete outstanding token failed: %w", op, err)
	}

	const insertQuery = `
    INSERT INTO password_reset_token (id, email, token, expires_at)
    VALUES (uuid_to_bin(:id), :email, :token, :expires_at)
    `
	if _, err := tx.NamedExecContext(ctx, insertQuery, token); err != nil {
		return fmt.Errorf("%s: insert password reset token failed: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit failed: %w", op, err)
	}

	return nil
}

func (r *passwordResetTokenRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "repository.passwordResetToken.Delete"

	const query = `DELETE FROM password_reset_token WHERE id = uuid_to_bin(?)`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("%s: delete password reset token failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows == 1, nil
}
