package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/db"
	"github.com/loopauth/backend/internal/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type userRepository struct {
	db *sqlx.DB
}

func newUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
	INSERT INTO user (id, name, email, password_hash, role, two_factor_enabled, verified_at)
	VALUES (uuid_to_bin(?), ?, ?, ?, ?, ?, ?);
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TwoFactorEnabled,
		user.VerifiedAt,
	)

	if err != nil {
		//nolint:errorlint
		if mysqlError, ok := err.(*mysql.MySQLError); ok && mysqlError.Number == db.DuplicateEntry {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("db insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected failed: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrNoRowsAffected
	}

	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
	SELECT id, name, email, password_hash, role, two_factor_enabled, verified_at, created_at, updated_at, deleted_at
	FROM user WHERE email = ? AND deleted_at IS NULL;
	`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select from user by email failed: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetOneByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `
	SELECT id, name, email, password_hash, role, two_factor_enabled, verified_at, created_at, updated_at, deleted_at
	FROM user WHERE id = uuid_to_bin(?);
	`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select from user by id failed: %w", err)
	}
	return &user, nil
}

func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	// verified_at never moves once set, keeps the state idempotent
	const query = `
	UPDATE user SET verified_at = ? WHERE id = uuid_to_bin(?) AND verified_at IS NULL;
	`
	_, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("update user verified_at failed: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const query = `
	UPDATE user SET password_hash = ? WHERE id = uuid_to_bin(?);
	`
	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update user password_hash failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected failed: %w", err)
	}

	if rows == 0 {
		return domain.ErrNoRowsAffected
	}

	return nil
}

func (r *userRepository) SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	const query = `
	UPDATE user SET two_factor_enabled = ? WHERE id = uuid_to_bin(?);
	`
	_, err := r.db.ExecContext(ctx, query, enabled, id)
	if err != nil {
		return fmt.Errorf("update user two_factor_enabled failed: %w", err)
	}
	return nil
}
