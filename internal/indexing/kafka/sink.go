package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"keygate/internal/indexing"
)

// Event is the JSON payload published for every failed index attempt.
type Event struct {
	Index       string    `json:"index"`
	Attempt     int       `json:"attempt"`
	RetriesLeft int       `json:"retries_left"`
	Error       string    `json:"error"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Sink publishes failed index attempts to a Kafka topic. Produces never
// block: once the client buffer is full new events are dropped and counted.
type Sink struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	now     func() time.Time
	dropped atomic.Int64
}

var _ indexing.Sink = (*Sink)(nil)

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger for produce failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// New connects to brokers and makes sure topic exists.
func New(ctx context.Context, brokers []string, topic string, opts ...Option) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	s := newSink(client, topic, opts...)
	if err := ensureTopic(ctx, kadm.NewClient(client), topic); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func newSink(client *kgo.Client, topic string, opts ...Option) *Sink {
	s := &Sink{client: client, topic: topic, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func ensureTopic(ctx context.Context, admin *kadm.Client, topic string) error {
	responses, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, resp := range responses {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

func (s *Sink) FailedAttempt(ctx context.Context, attempt indexing.FailedAttempt) {
	event := Event{
		Index:       attempt.Index,
		Attempt:     attempt.Attempt,
		RetriesLeft: attempt.RetriesLeft,
		OccurredAt:  s.now().UTC(),
	}
	if attempt.Err != nil {
		event.Error = attempt.Err.Error()
	}
	value, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode index failure event", "error", err)
		return
	}

	record := &kgo.Record{Key: []byte(attempt.Index), Value: value}
	s.client.TryProduce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err == nil {
			return
		}
		if errors.Is(err, kgo.ErrMaxBuffered) {
			s.dropped.Add(1)
			s.logger.Warn("kafka buffer full, dropping index failure event",
				"topic", s.topic,
				"index", attempt.Index,
			)
			return
		}
		s.logger.Warn("failed to publish index failure event",
			"topic", s.topic,
			"index", attempt.Index,
			"error", err,
		)
	})
}

// Dropped returns how many events were dropped because the client buffer was
// full.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Close flushes buffered events until ctx ends and closes the client.
func (s *Sink) Close(ctx context.Context) error {
	defer s.client.Close()
	if err := s.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	return nil
}
