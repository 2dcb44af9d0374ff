package ratelimit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvisoryShortCircuitsOverLimit(t *testing.T) {
	a := NewAdvisory(NewMemoryStore(), 3, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, a.Allow(1, ActionExpressInterest))
	}
	assert.False(t, a.Allow(1, ActionExpressInterest))

	// capacity returns as the window slides
	now = now.Add(61 * time.Second)
	assert.True(t, a.Allow(1, ActionExpressInterest))
}

func TestAdvisoryFailsOpenOnCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counters.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	a := NewAdvisory(NewFileStore(path), 1, time.Minute)
	// local state is garbage: the server-side limiter decides
	assert.True(t, a.Allow(1, ActionExpressInterest))
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counters.json")
	a := NewAdvisory(NewFileStore(path), 2, time.Minute)

	assert.True(t, a.Allow(7, ActionSendMessage))
	assert.True(t, a.Allow(7, ActionSendMessage))
	assert.False(t, a.Allow(7, ActionSendMessage))

	// a fresh instance over the same file sees the recorded attempts
	b := NewAdvisory(NewFileStore(path), 2, time.Minute)
	assert.False(t, b.Allow(7, ActionSendMessage))
}
