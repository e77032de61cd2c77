package indexing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/internal/indexing"
)

type recordingPurger struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *recordingPurger) DeleteOlderThan(_ context.Context, index string, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, index)
	return p.err
}

func (p *recordingPurger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRetentionSchedulerValidatesPolicy(t *testing.T) {
	purger := &recordingPurger{}
	cases := []struct {
		name   string
		purger indexing.Purger
		policy indexing.RetentionPolicy
	}{
		{"missing purger", nil, indexing.RetentionPolicy{Index: "events", Days: 30, Schedule: "0 3 * * *"}},
		{"missing index", purger, indexing.RetentionPolicy{Days: 30, Schedule: "0 3 * * *"}},
		{"non-positive days", purger, indexing.RetentionPolicy{Index: "events", Schedule: "0 3 * * *"}},
		{"bad schedule", purger, indexing.RetentionPolicy{Index: "events", Days: 30, Schedule: "every day"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := indexing.NewRetentionScheduler(tc.purger, tc.policy, discardLogger())
			assert.Error(t, err)
		})
	}
}

func TestRetentionRunOnceSwallowsErrors(t *testing.T) {
	purger := &recordingPurger{err: errors.New("cluster down")}
	scheduler, err := indexing.NewRetentionScheduler(purger,
		indexing.RetentionPolicy{Index: "auth-events", Days: 30, Schedule: "0 3 * * *"}, discardLogger())
	require.NoError(t, err)

	scheduler.RunOnce(context.Background())

	assert.Equal(t, []string{"auth-events"}, purger.calls)
}

func TestRetentionRunFiresOnScheduleAndStops(t *testing.T) {
	purger := &recordingPurger{}
	scheduler, err := indexing.NewRetentionScheduler(purger,
		indexing.RetentionPolicy{Index: "auth-events", Days: 30, Schedule: "@every 1s"}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	assert.Eventually(t, func() bool { return purger.count() > 0 }, 5*time.Second, 50*time.Millisecond)
	assert.True(t, scheduler.IsRunning())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, scheduler.IsRunning())
}
