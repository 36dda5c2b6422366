// Package queue serializes calls to the upstream generation API behind a
// rolling-window rate limit. Callers past the window capacity wait in strict
// arrival order; a drain loop dispatches the head whenever capacity frees up.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"tailwise-insights/internal/genai"
	"tailwise-insights/internal/metrics"
)

// ErrClosed is returned for submissions after Close, and to waiters whose
// request was still queued when the service shut down.
var ErrClosed = errors.New("queue: closed")

// Limits bounds the dispatch rate: at most MaxRequestsPerWindow dispatches
// within any trailing WindowDuration interval.
type Limits struct {
	MaxRequestsPerWindow int
	WindowDuration       time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MaxRequestsPerWindow <= 0 {
		l.MaxRequestsPerWindow = 10
	}
	if l.WindowDuration <= 0 {
		l.WindowDuration = time.Minute
	}
	return l
}

type result struct {
	text string
	err  error
}

type pendingCall struct {
	ctx  context.Context
	req  *genai.GenerateRequest
	done chan result // buffered; exactly one send per call
}

// RateLimited wraps a genai.Client with FIFO queuing and a rolling-window
// rate limit. It is itself a genai.Client, so the façade is unaware of it.
type RateLimited struct {
	inner  genai.Client
	limits Limits
	logger *zap.Logger

	mu         sync.Mutex
	pending    []*pendingCall
	dispatched []time.Time // rolling window of dispatch timestamps
	draining   bool
	closed     bool

	now func() time.Time
}

func New(inner genai.Client, limits Limits, logger *zap.Logger) *RateLimited {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimited{
		inner:  inner,
		limits: limits.withDefaults(),
		logger: logger.Named("queue"),
		now:    time.Now,
	}
}

// Generate enqueues the request and blocks until it has been dispatched and
// answered, or until ctx is cancelled. Queued requests are served strictly
// in submission order.
func (q *RateLimited) Generate(ctx context.Context, req *genai.GenerateRequest) (string, error) {
	call := &pendingCall{
		ctx:  ctx,
		req:  req,
		done: make(chan result, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrClosed
	}
	q.pending = append(q.pending, call)
	depth := len(q.pending)
	if !q.draining {
		q.draining = true
		go q.drain()
	}
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))

	select {
	case res := <-call.done:
		return res.text, res.err
	case <-ctx.Done():
		// The drain loop will notice the dead context when it reaches this
		// call and skip the dispatch.
		return "", ctx.Err()
	}
}

// drain serves queued calls one at a time. It runs in a single goroutine:
// the draining flag guarantees at most one drain loop is alive, which is
// what makes the FIFO ordering guarantee trivial to uphold.
func (q *RateLimited) drain() {
	for {
		q.mu.Lock()
		now := q.now()
		q.prune(now)

		if q.closed {
			q.failPendingLocked(ErrClosed)
			q.draining = false
			q.mu.Unlock()
			return
		}

		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}

		if len(q.dispatched) >= q.limits.MaxRequestsPerWindow {
			// At capacity: wait until the oldest in-window dispatch ages out.
			wait := q.dispatched[0].Add(q.limits.WindowDuration).Sub(now) + time.Millisecond
			q.mu.Unlock()

			q.logger.Debug("rate window saturated, waiting",
				zap.Duration("wait", wait),
			)
			metrics.QueueWaitSeconds.Observe(wait.Seconds())
			time.Sleep(wait)
			continue
		}

		call := q.pending[0]
		q.pending = q.pending[1:]
		depth := len(q.pending)

		if err := call.ctx.Err(); err != nil {
			// Caller gave up while queued; skip the dispatch without
			// consuming a window slot.
			q.mu.Unlock()
			metrics.QueueDepth.Set(float64(depth))
			call.done <- result{err: err}
			continue
		}

		q.dispatched = append(q.dispatched, now)
		q.mu.Unlock()

		metrics.QueueDepth.Set(float64(depth))

		// The network call happens outside the lock so new submissions can
		// keep enqueuing while it is in flight.
		text, err := q.inner.Generate(call.ctx, call.req)
		if err != nil {
			metrics.UpstreamDispatchesTotal.WithLabelValues("error").Inc()
		} else {
			metrics.UpstreamDispatchesTotal.WithLabelValues("ok").Inc()
		}
		call.done <- result{text: text, err: err}
	}
}

// prune drops dispatch timestamps older than the rolling window.
// Callers must hold q.mu.
func (q *RateLimited) prune(now time.Time) {
	cutoff := now.Add(-q.limits.WindowDuration)
	i := 0
	for i < len(q.dispatched) && !q.dispatched[i].After(cutoff) {
		i++
	}
	if i > 0 {
		q.dispatched = append(q.dispatched[:0], q.dispatched[i:]...)
	}
}

// failPendingLocked rejects every queued call. Callers must hold q.mu.
func (q *RateLimited) failPendingLocked(err error) {
	for _, call := range q.pending {
		call.done <- result{err: err}
	}
	q.pending = nil
	metrics.QueueDepth.Set(0)
}

// Close rejects all queued calls and refuses new submissions. In-flight
// upstream calls are not interrupted.
func (q *RateLimited) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	if !q.draining {
		q.failPendingLocked(ErrClosed)
	}
	return nil
}

// Depth returns the number of queued (not yet dispatched) calls.
func (q *RateLimited) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
