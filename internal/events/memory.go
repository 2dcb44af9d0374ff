package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus. Used in tests and as a fallback when the
// redis bus is not configured. Slow subscribers drop events rather than
// block publishers.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[uint64][]chan Event
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uint64][]chan Event)}
}

func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[ev.MatchID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, matchID uint64) (<-chan Event, func(), error) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[matchID] = append(b.subs[matchID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		chans := b.subs[matchID]
		for i, c := range chans {
			if c == ch {
				b.subs[matchID] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
		if len(b.subs[matchID]) == 0 {
			delete(b.subs, matchID)
		}
	}

	return ch, cancel, nil
}
