package rooms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvisioner struct {
	calls int
	errs  []error
}

func (s *scriptedProvisioner) CreateRoom(_ context.Context, id uint64) (string, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return "", s.errs[s.calls-1]
	}
	return fmt.Sprintf("https://rooms.example.com/%d", id), nil
}

func (s *scriptedProvisioner) DeleteRoom(context.Context, uint64) error { return nil }

func newRetrying(inner Provisioner, attempts int) *RetryingProvisioner {
	r := NewRetryingProvisioner(inner, attempts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &scriptedProvisioner{errs: []error{ErrUnavailable, ErrUnavailable}}
	r := newRetrying(inner, 3)

	url, err := r.CreateRoom(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "https://rooms.example.com/7", url)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	inner := &scriptedProvisioner{errs: []error{ErrUnavailable, ErrUnavailable, ErrUnavailable}}
	r := newRetrying(inner, 3)

	_, err := r.CreateRoom(context.Background(), 7)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStopsOnNonTransientError(t *testing.T) {
	rejected := errors.New("room provisioner rejected request: status 400")
	inner := &scriptedProvisioner{errs: []error{rejected}}
	r := newRetrying(inner, 3)

	_, err := r.CreateRoom(context.Background(), 7)
	assert.Equal(t, rejected, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	inner := &scriptedProvisioner{errs: []error{ErrUnavailable, ErrUnavailable}}
	r := NewRetryingProvisioner(inner, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.CreateRoom(ctx, 7)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, inner.calls)
}
