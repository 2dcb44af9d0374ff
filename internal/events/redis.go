package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBus carries match events over redis pub/sub so that every API
// instance sees publishes from every other instance.
type RedisBus struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisBus(client *redis.Client, log *slog.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func channelFor(matchID uint64) string {
	return fmt.Sprintf("match:events:%d", matchID)
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channelFor(ev.MatchID), payload).Err(); err != nil {
		// best-effort: the caller's state transition already happened
		b.log.Warn("event publish failed", "match_id", ev.MatchID, "kind", ev.Kind, "err", err)
		return err
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, matchID uint64) (<-chan Event, func(), error) {
	sub := b.client.Subscribe(ctx, channelFor(matchID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to match %d: %w", matchID, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("dropping malformed event", "match_id", matchID, "err", err)
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}
