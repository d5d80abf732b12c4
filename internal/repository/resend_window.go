package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type resendWindowRepository struct {
	rdb           redis.UniversalClient
	initialWindow time.Duration
	maxWindow     time.Duration
}

func newResendWindowRepository(rdb redis.UniversalClient, initialWindow, maxWindow time.Duration) *resendWindowRepository {
	return &resendWindowRepository{
		rdb:           rdb,
		initialWindow: initialWindow,
		maxWindow:     maxWindow,
	}
}

func resendWaitKey(email string) string {
	return "auth:resend:wait:" + email
}

func resendWindowKey(email string) string {
	return "auth:resend:window:" + email
}

// Active reports whether the current wait window is still open and how much
// of it remains.
func (r *resendWindowRepository) Active(ctx context.Context, email string) (time.Duration, bool, error) {
	ttl, err := r.rdb.PTTL(ctx, resendWaitKey(email)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("resend wait pttl failed: %w", err)
	}

	if ttl <= 0 {
		return 0, false, nil
	}

	return ttl, true, nil
}

// Start opens the wait window for this resend and doubles the stored window
// for the next one, capped at maxWindow. The stored window value carries the
// counter TTL so abandoned flows eventually fall back to the initial window.
func (r *resendWindowRepository) Start(ctx context.Context, email string) (time.Duration, error) {
	window := r.initialWindow

	stored, err := r.rdb.Get(ctx, resendWindowKey(email)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("resend window get failed: %w", err)
	}
	if err == nil {
		if parsed, parseErr := time.ParseDuration(stored); parseErr == nil {
			window = parsed
		}
	}

	if window > r.maxWindow {
		window = r.maxWindow
	}

	next := window * 2
	if next > r.maxWindow {
		next = r.maxWindow
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, resendWaitKey(email), 1, window)
	pipe.Set(ctx, resendWindowKey(email), next.String(), r.maxWindow*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("resend window start failed: %w", err)
	}

	return window, nil
}
