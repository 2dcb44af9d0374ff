package rooms

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryingProvisioner wraps a Provisioner with bounded retries and
// exponential backoff on transient failures. Non-transient failures are
// returned immediately.
type RetryingProvisioner struct {
	Inner       Provisioner
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger

	sleep func(context.Context, time.Duration) error
}

func NewRetryingProvisioner(inner Provisioner, maxAttempts int, logger *slog.Logger) *RetryingProvisioner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingProvisioner{
		Inner:       inner,
		MaxAttempts: maxAttempts,
		BaseDelay:   200 * time.Millisecond,
		Logger:      logger,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *RetryingProvisioner) CreateRoom(ctx context.Context, verityDateID uint64) (string, error) {
	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		url, err := r.Inner.CreateRoom(ctx, verityDateID)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return "", err
		}

		lastErr = err
		r.Logger.Warn("room provisioning attempt failed",
			"verity_date_id", verityDateID,
			"attempt", attempt,
			"max_attempts", r.MaxAttempts,
			"err", err,
		)

		if attempt < r.MaxAttempts {
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
			delay *= 2
		}
	}

	return "", lastErr
}

func (r *RetryingProvisioner) DeleteRoom(ctx context.Context, verityDateID uint64) error {
	return r.Inner.DeleteRoom(ctx, verityDateID)
}
