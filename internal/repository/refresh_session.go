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

type refreshSessionRepository struct {
	db *sqlx.DB
}

func newRefreshSessionRepository(db *sqlx.DB) *refreshSessionRepository {
	return &refreshSessionRepository{
		db: db,
	}
}

func (r *refreshSessionRepository) Create(ctx context.Context, session *domain.RefreshSession) error {
	const query = `
				INSERT INTO refresh_session (id, user_id, refresh_token, provider, user_agent, ip, expires_in)
				VALUES (uuid_to_bin(?), uuid_to_bin(?), uuid_to_bin(?), ?, ?, ?, ?)
				`
	_, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.RefreshToken, session.Provider, session.UserAgent, session.IP, session.ExpiresIn)

	if err != nil {
		return fmt.Errorf("db insert refresh session: %w", err)
	}

	return nil
}

func (r *refreshSessionRepository) GetByToken(ctx context.Context, refreshToken uuid.UUID) (*domain.RefreshSession, error) {
	const query = `
	SELECT id, user_id, refresh_token, provider, user_agent, ip, expires_in, created_at, updated_at, deleted_at
	FROM refresh_session WHERE refresh_token = uuid_to_bin(?) AND deleted_at IS NULL;
	`
	var session domain.RefreshSession
	if err := r.db.GetContext(ctx, &session, query, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select refresh session by token failed: %w", err)
	}

	return &session, nil
}

func (r *refreshSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM refresh_session WHERE id = uuid_to_bin(?)`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete refresh session failed: %w", err)
	}

	return nil
}
