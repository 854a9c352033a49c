package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/namastexlabs/automagik-telemetry-go/backend"
	"github.com/namastexlabs/automagik-telemetry-go/event"
)

// scheduler owns the in-memory event queue and the single worker goroutine
// that drains it. Enqueue never blocks on network I/O: the queue is swapped
// out under the mutex and the lock is released before any send. One worker
// means no two flushes ever run concurrently, and explicit flush requests
// that arrive while a drain is in flight simply queue behind it — by the
// time theirs runs, the queue is usually already empty.
type scheduler struct {
	transport backend.Transport
	resource  event.Resource
	batchSize int
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	queue   []event.Event
	stopped bool

	notify  chan struct{}
	reqCh   chan flushRequest
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type flushRequest struct {
	done chan struct{}
}

func newScheduler(transport backend.Transport, resource event.Resource, batchSize int, interval, timeout time.Duration, logger *zap.Logger) *scheduler {
	s := &scheduler{
		transport: transport,
		resource:  resource,
		batchSize: batchSize,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		notify:    make(chan struct{}, 1),
		reqCh:     make(chan flushRequest),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go s.run()
	return s
}

// enqueue appends the event and pokes the worker when the queue reaches the
// batch size. After shutdown it silently drops.
func (s *scheduler) enqueue(ev event.Event) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	full := len(s.queue) >= s.batchSize
	s.mu.Unlock()

	if full {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

// flush asks the worker to drain the queue and waits until that drain
// completes or ctx expires. Safe to call concurrently; each caller's request
// is served in turn by the single worker.
func (s *scheduler) flush(ctx context.Context) {
	req := flushRequest{done: make(chan struct{})}
	select {
	case s.reqCh <- req:
	case <-s.doneCh:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-req.done:
	case <-ctx.Done():
	}
}

// shutdown stops the ticker, performs a final drain bounded by the
// scheduler's timeout, and marks the queue closed. Subsequent calls wait for
// the first to finish.
func (s *scheduler) shutdown(ctx context.Context) {
	s.mu.Lock()
	already := s.stopped
	s.stopped = true
	s.mu.Unlock()

	if !already {
		close(s.stopCh)
	}
	select {
	case <-s.doneCh:
	case <-ctx.Done():
	}
}

func (s *scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.notify:
			s.drain(context.Background())
		case <-ticker.C:
			s.drain(context.Background())
		case req := <-s.reqCh:
			s.drain(context.Background())
			close(req.done)
		case <-s.stopCh:
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			s.drain(ctx)
			cancel()
			close(s.doneCh)
			return
		}
	}
}

// drain sends the queued events in chunks of at most batchSize, preserving
// enqueue order. A batch that fails after retries is dropped; bounded memory
// beats unbounded redelivery.
func (s *scheduler) drain(ctx context.Context) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		n := len(s.queue)
		if n > s.batchSize {
			n = s.batchSize
		}
		chunk := s.queue[:n:n]
		s.queue = append([]event.Event(nil), s.queue[n:]...)
		s.mu.Unlock()

		out := s.transport.Send(ctx, &event.Batch{Resource: s.resource, Events: chunk})
		if out.Success {
			s.logger.Debug("batch sent",
				zap.Int("events", len(chunk)),
				zap.Int("attempts", out.Attempts))
		} else {
			s.logger.Debug("batch dropped",
				zap.Int("events", len(chunk)),
				zap.Int("attempts", out.Attempts),
				zap.Error(out.Err))
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// pending returns the current queue depth.
func (s *scheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
