package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type twoFactorCodeRepository struct {
	rdb redis.UniversalClient
}

func newTwoFactorCodeRepository(rdb redis.UniversalClient) *twoFactorCodeRepository {
	return &twoFactorCodeRepository{
		rdb: rdb,
	}
}

func twoFactorCodeKey(userID uuid.UUID) string {
	return "auth:2fa:code:" + userID.String()
}

func (r *twoFactorCodeRepository) Set(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, twoFactorCodeKey(userID), code, ttl).Err(); err != nil {
		return fmt.Errorf("two factor code set failed: %w", err)
	}

	return nil
}

// Consume fetches and deletes the code in a single GETDEL, so a code can be
// checked by at most one confirmation attempt.
func (r *twoFactorCodeRepository) Consume(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := r.rdb.GetDel(ctx, twoFactorCodeKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("two factor code getdel failed: %w", err)
	}

	return code, nil
}
