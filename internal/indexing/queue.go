package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultRetries   = 3
	defaultBaseDelay = 100 * time.Millisecond
)

// Queue writes records to a Backend in the background. Writes run one at a
// time in submission order; each is retried with exponential backoff and
// every failed attempt is reported to the sink. Exhausted writes are dropped.
//
// A Queue built without a backend accepts every call and does nothing.
type Queue struct {
	backend    Backend
	sink       Sink
	logger     *slog.Logger
	metrics    *Metrics
	retries    int
	baseDelay  time.Duration
	maxPending int
	now        func() time.Time

	mu      sync.Mutex
	pending []write
	closed  bool

	wake   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

type write struct {
	index  string
	record map[string]any
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the queue logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithSink sets where failed attempts are reported. Defaults to a LogSink.
func WithSink(sink Sink) Option {
	return func(q *Queue) {
		if sink != nil {
			q.sink = sink
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}

// WithRetries sets how many times a failed write is retried after the first
// attempt.
func WithRetries(retries int) Option {
	return func(q *Queue) {
		if retries >= 0 {
			q.retries = retries
		}
	}
}

// WithBaseDelay sets the first retry delay; later delays double.
func WithBaseDelay(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.baseDelay = d
		}
	}
}

// WithMaxPending bounds the number of writes waiting for the worker. When the
// bound is hit the oldest pending write is dropped. Zero means unbounded.
func WithMaxPending(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.maxPending = n
		}
	}
}

// WithClock overrides the time source used for retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// New creates a queue writing to backend and starts its worker. backend may be
// nil, in which case the queue is disabled.
func New(backend Backend, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		backend:   backend,
		logger:    slog.Default(),
		retries:   defaultRetries,
		baseDelay: defaultBaseDelay,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	if q.sink == nil {
		q.sink = NewLogSink(q.logger)
	}

	if q.backend == nil {
		q.logger.Warn("search indexing is not enabled")
		close(q.done)
		return q
	}
	go q.run()
	return q
}

// Enabled reports whether the queue has a backend.
func (q *Queue) Enabled() bool {
	return q.backend != nil
}

// Submit schedules record to be written to index and returns immediately.
func (q *Queue) Submit(index string, record map[string]any) {
	if q.backend == nil {
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.metrics.addDropped(1)
		q.logger.Debug("index queue closed, dropping write", "index", index)
		return
	}
	if q.maxPending > 0 && len(q.pending) >= q.maxPending {
		dropped := q.pending[0]
		q.pending[0] = write{}
		q.pending = q.pending[1:]
		q.metrics.addDropped(1)
		q.logger.Warn("index queue full, dropping oldest write", "index", dropped.index)
	}
	q.pending = append(q.pending, write{index: index, record: record})
	q.metrics.setPending(len(q.pending))
	q.mu.Unlock()

	q.signal()
}

// Search passes req to the backend. Without a backend it returns nil, nil.
func (q *Queue) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if q.backend == nil {
		return nil, nil
	}
	return q.backend.Search(ctx, req)
}

// DeleteOlderThan deletes every record in index dated at or before now minus
// days calendar days. It runs immediately, outside the write queue.
func (q *Queue) DeleteOlderThan(ctx context.Context, index string, days int) error {
	if err := q.DeleteBefore(ctx, index, q.Cutoff(days)); err != nil {
		return fmt.Errorf("delete records older than %d days: %w", days, err)
	}
	return nil
}

// DeleteBefore deletes every record in index dated at or before cutoff.
func (q *Queue) DeleteBefore(ctx context.Context, index string, cutoff time.Time) error {
	if q.backend == nil {
		return nil
	}
	if err := q.backend.DeleteByQuery(ctx, index, cutoff); err != nil {
		return fmt.Errorf("delete records from %s: %w", index, err)
	}
	return nil
}

// Cutoff returns the retention cutoff for days.
func (q *Queue) Cutoff(days int) time.Time {
	return q.now().AddDate(0, 0, -days)
}

// Close stops accepting writes and waits for pending ones to finish. If ctx
// ends first, in-flight retries are abandoned, remaining writes are dropped
// and ctx's error is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-q.done
		return ctx.Err()
	}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		w, ok := q.next()
		if !ok {
			return
		}
		q.write(w)
	}
}

func (q *Queue) next() (write, bool) {
	for {
		q.mu.Lock()
		if q.ctx.Err() != nil {
			dropped := len(q.pending)
			q.pending = nil
			q.metrics.setPending(0)
			q.mu.Unlock()
			q.metrics.addDropped(dropped)
			return write{}, false
		}
		if len(q.pending) > 0 {
			w := q.pending[0]
			q.pending[0] = write{}
			q.pending = q.pending[1:]
			q.metrics.setPending(len(q.pending))
			q.mu.Unlock()
			return w, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return write{}, false
		}
		select {
		case <-q.wake:
		case <-q.ctx.Done():
		}
	}
}

func (q *Queue) write(w write) {
	backoff := retry.WithMaxRetries(uint64(q.retries), retry.NewExponential(q.baseDelay))

	attempt := 0
	err := retry.Do(q.ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := q.backend.Index(ctx, w.index, w.record)
		if err == nil {
			return nil
		}
		q.metrics.incFailedAttempt()
		q.sink.FailedAttempt(ctx, FailedAttempt{
			Index:       w.index,
			Attempt:     attempt,
			RetriesLeft: q.retries - (attempt - 1),
			Err:         err,
		})
		return retry.RetryableError(err)
	})
	if err != nil {
		q.metrics.incWrite("exhausted")
		q.logger.Debug("index write abandoned", "index", w.index, "attempts", attempt, "error", err)
		return
	}
	q.metrics.incWrite("success")
}
