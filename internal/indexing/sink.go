package indexing

import (
	"context"
	"log/slog"
)

// FailedAttempt describes one failed write attempt.
type FailedAttempt struct {
	Index       string
	Attempt     int
	RetriesLeft int
	Err         error
}

// Sink observes failed write attempts. Implementations must not block for long:
// they run on the queue's worker goroutine.
type Sink interface {
	FailedAttempt(ctx context.Context, attempt FailedAttempt)
}

// LogSink reports failed attempts through slog.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) FailedAttempt(ctx context.Context, attempt FailedAttempt) {
	s.logger.ErrorContext(ctx, "indexing record failed, retrying",
		"index", attempt.Index,
		"attempt", attempt.Attempt,
		"retries_left", attempt.RetriesLeft,
		"error", attempt.Err,
	)
}

// MultiSink fans a failed attempt out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) FailedAttempt(ctx context.Context, attempt FailedAttempt) {
	for _, sink := range m {
		if sink != nil {
			sink.FailedAttempt(ctx, attempt)
		}
	}
}
