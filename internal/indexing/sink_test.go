package indexing_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"keygate/internal/indexing"
)

func TestLogSinkWritesAttemptDetails(t *testing.T) {
	var buf bytes.Buffer
	sink := indexing.NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	sink.FailedAttempt(context.Background(), indexing.FailedAttempt{
		Index:       "auth-events",
		Attempt:     3,
		RetriesLeft: 0,
		Err:         errors.New("boom"),
	})

	out := buf.String()
	assert.Contains(t, out, "indexing record failed, retrying")
	assert.Contains(t, out, "index=auth-events")
	assert.Contains(t, out, "retries_left=0")
	assert.Contains(t, out, "error=boom")
}

func TestMultiSinkForwardsToEverySink(t *testing.T) {
	first, second := &recordingSink{}, &recordingSink{}
	multi := indexing.MultiSink{first, nil, second}

	attempt := indexing.FailedAttempt{Index: "events", Attempt: 1, RetriesLeft: 2}
	multi.FailedAttempt(context.Background(), attempt)

	assert.Equal(t, []indexing.FailedAttempt{attempt}, first.all())
	assert.Equal(t, []indexing.FailedAttempt{attempt}, second.all())
}
