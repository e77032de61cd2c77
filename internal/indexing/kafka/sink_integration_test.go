//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"keygate/internal/indexing"
	"keygate/internal/indexing/kafka"
	"keygate/pkg/testutil/containers"
)

func TestSinkPublishesFailedAttempts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fixed := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	sink, err := kafka.New(ctx, []string{broker.SeedBroker}, "index-failures",
		kafka.WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	// Creating the sink twice must tolerate the existing topic.
	again, err := kafka.New(ctx, []string{broker.SeedBroker}, "index-failures")
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))

	sink.FailedAttempt(ctx, indexing.FailedAttempt{
		Index:       "auth-events",
		Attempt:     2,
		RetriesLeft: 1,
		Err:         errors.New("connection refused"),
	})
	require.NoError(t, sink.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.SeedBroker),
		kgo.ConsumeTopics("index-failures"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollRecords(ctx, 1)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	var event kafka.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &event))
	assert.Equal(t, "auth-events", string(records[0].Key))
	assert.Equal(t, kafka.Event{
		Index:       "auth-events",
		Attempt:     2,
		RetriesLeft: 1,
		Error:       "connection refused",
		OccurredAt:  fixed,
	}, event)
}
