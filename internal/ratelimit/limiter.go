package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/verityapp/verity-server/internal/metrics"
)

// Action identifies a rate-limited action kind.
type Action string

const (
	ActionExpressInterest Action = "express_interest"
	ActionSendMessage     Action = "send_message"
)

// Decision is the limiter's answer for one attempted action.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is the authoritative server-side rate limiter: a rolling window
// per (user, action) backed by a redis sorted set of attempt timestamps.
// Capacity refills proportionally as old attempts age out of the window.
//
// The limiter fails OPEN: if redis is unreachable the action is allowed and
// the condition logged. An ancillary safety mechanism must never become a
// single point of failure for the primary feature.
type Limiter struct {
	client *redis.Client
	cap    int
	window time.Duration
	log    *slog.Logger

	now func() time.Time
}

func New(client *redis.Client, capacity int, window time.Duration, log *slog.Logger) *Limiter {
	return &Limiter{
		client: client,
		cap:    capacity,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

func keyFor(userID uint64, action Action) string {
	return fmt.Sprintf("ratelimit:%s:%d", action, userID)
}

// Check records an attempt and reports whether it is allowed. Denied
// attempts are not recorded, so a blocked user does not push their own
// window further out.
func (l *Limiter) Check(ctx context.Context, userID uint64, action Action) Decision {
	key := keyFor(userID, action)
	now := l.now()
	cutoff := now.Add(-l.window)

	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		return l.failOpen(action, err)
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return l.failOpen(action, err)
	}

	if count >= int64(l.cap) {
		metrics.RateLimitedTotal.WithLabelValues(string(action)).Inc()
		return Decision{Allowed: false, Remaining: 0, RetryAfter: l.retryAfter(ctx, key, now)}
	}

	member := redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()}
	if err := l.client.ZAdd(ctx, key, member).Err(); err != nil {
		return l.failOpen(action, err)
	}
	_ = l.client.Expire(ctx, key, l.window+time.Second).Err()

	return Decision{Allowed: true, Remaining: l.cap - int(count) - 1}
}

// retryAfter computes when the oldest attempt ages out of the window.
func (l *Limiter) retryAfter(ctx context.Context, key string, now time.Time) time.Duration {
	oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return l.window
	}
	expiry := time.Unix(0, int64(oldest[0].Score)).Add(l.window)
	if d := expiry.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (l *Limiter) failOpen(action Action, err error) Decision {
	l.log.Warn("rate limiter unreachable, failing open", "action", string(action), "err", err)
	return Decision{Allowed: true, Remaining: l.cap}
}
