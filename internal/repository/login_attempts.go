package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type loginAttemptsRepository struct {
	rdb        redis.UniversalClient
	counterTTL time.Duration
}

func newLoginAttemptsRepository(rdb redis.UniversalClient, counterTTL time.Duration) *loginAttemptsRepository {
	return &loginAttemptsRepository{
		rdb:        rdb,
		counterTTL: counterTTL,
	}
}

func failureKey(userID uuid.UUID) string {
	return "auth:fail:" + userID.String()
}

func lockKey(userID uuid.UUID) string {
	return "auth:lock:" + userID.String()
}

func (r *loginAttemptsRepository) LockedUntil(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	ttl, err := r.rdb.PTTL(ctx, lockKey(userID)).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lock pttl failed: %w", err)
	}

	// PTTL returns a negative duration when the key does not exist or has
	// no expiry
	if ttl <= 0 {
		return time.Time{}, false, nil
	}

	return time.Now().Add(ttl), true, nil
}

// RecordFailure increments the consecutive-failure counter and returns the
// new count. A single INCR decides the threshold crossing, so only one
// concurrent caller ever observes the exact threshold value.
func (r *loginAttemptsRepository) RecordFailure(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := failureKey(userID)

	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failure counter incr failed: %w", err)
	}

	if count == 1 {
		if err := r.rdb.Expire(ctx, key, r.counterTTL).Err(); err != nil {
			return count, fmt.Errorf("failure counter expire failed: %w", err)
		}
	}

	return count, nil
}

func (r *loginAttemptsRepository) Lock(ctx context.Context, userID uuid.UUID, duration time.Duration) error {
	if err := r.rdb.Set(ctx, lockKey(userID), time.Now().Add(duration).Unix(), duration).Err(); err != nil {
		return fmt.Errorf("lock set failed: %w", err)
	}

	return nil
}

// Reset clears the failure streak and lifts any standing lock.
func (r *loginAttemptsRepository) Reset(ctx context.Context, userID uuid.UUID) error {
	if err := r.rdb.Del(ctx, failureKey(userID), lockKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failure state del failed: %w", err)
	}

	return nil
}
