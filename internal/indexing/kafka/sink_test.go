package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"keygate/internal/indexing"
)

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(context.Background(), nil, "index-failures")
	assert.ErrorContains(t, err, "brokers are required")

	_, err = New(context.Background(), []string{"localhost:9092"}, "")
	assert.ErrorContains(t, err, "topic is required")
}

func TestFailedAttemptDoesNotBlockWhenBufferIsFull(t *testing.T) {
	// Nothing listens on port 1, so produced records stay buffered.
	client, err := kgo.NewClient(
		kgo.SeedBrokers("127.0.0.1:1"),
		kgo.DefaultProduceTopic("index-failures"),
		kgo.MaxBufferedRecords(1),
	)
	require.NoError(t, err)
	sink := newSink(client, "index-failures", WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	attempt := indexing.FailedAttempt{Index: "auth-events", Attempt: 1, RetriesLeft: 2, Err: errors.New("timeout")}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 3 {
			sink.FailedAttempt(context.Background(), attempt)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("FailedAttempt blocked with a full producer buffer")
	}
	assert.Eventually(t, func() bool { return sink.Dropped() > 0 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = sink.Close(ctx)
}
