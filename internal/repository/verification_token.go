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

type verificationTokenRepository struct {
	db *sqlx.DB
}

func newVerificationTokenRepository(db *sqlx.DB) *verificationTokenRepository {
	return &verificationTokenRepository{
		db: db,
	}
}

func (r *verificationTokenRepository) GetByEmail(ctx context.Context, email string) (*domain.VerificationToken, error) {
	const op = "repository.verificationToken.GetByEmail"

	const query = `
    SELECT id, email, token, code, expires_at, created_at
    FROM verification_token
    WHERE email = ?
    `

	var token domain.VerificationToken
	if err := r.db.GetContext(ctx, &token, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select verification token failed: %w", op, err)
	}

	return &token, nil
}

func (r *verificationTokenRepository) GetByToken(ctx context.Context, tokenValue string) (*domain.VerificationToken, error) {
	const op = "repository.verificationToken.GetByToken"

	const query = `
    SELECT id, email, token, code, expires_at, created_at
    FROM verification_token
    WHERE token = ?
    `

	var token domain.VerificationToken
	if err := r.db.GetContext(ctx, &token, query, tokenValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select verification token failed: %w", op, err)
	}

	return &token, nil
}

// Replace supersedes the outstanding token for the email inside one
// transaction. The unique key on email backs up the delete+insert, so
// concurrent reissues cannot leave two live tokens.
func (r *verificationTokenRepository) Replace(ctx context.Context, token *domain.VerificationToken) error {
	const op = "repository.verificationToken.Replace"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx failed: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deleteQuery = `DELETE FROM verification_token WHERE email = ?`
	if _, err := tx.ExecContext(ctx, deleteQuery, token.Email); err != nil {
		return fmt.Errorf("%s: delete outstanding token failed: %w", op, err)
	}

	const insertQuery = `
    INSERT INTO verification_token (id, email, token, code, expires_at)
    VALUES (uuid_to_bin(:id), :email, :token, :code, :expires_at)
    `
	if _, err := tx.NamedExecContext(ctx, insertQuery, token); err != nil {
		return fmt.Errorf("%s: insert verification token failed: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit failed: %w", op, err)
	}

	return nil
}

func (r *verificationTokenRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "repository.verificationToken.Delete"

	const query = `DELETE FROM verification_token WHERE id = uuid_to_bin(?)`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("%s: delete verification token failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows == 1, nil
}
