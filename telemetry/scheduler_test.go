package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/namastexlabs/automagik-telemetry-go/backend"
	"github.com/namastexlabs/automagik-telemetry-go/event"
)

// fakeTransport records every batch it receives. An optional gate blocks
// each Send until the test closes it.
type fakeTransport struct {
	mu      sync.Mutex
	batches [][]event.Event
	fail    bool
	gate    chan struct{}
}

func (f *fakeTransport) Send(ctx context.Context, batch *event.Batch) backend.Outcome {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return backend.Outcome{Attempts: 1, Err: ctx.Err()}
		}
	}
	f.mu.Lock()
	f.batches = append(f.batches, append([]event.Event(nil), batch.Events...))
	f.mu.Unlock()
	if f.fail {
		return backend.Outcome{Attempts: 1, Err: errors.New("send failed")}
	}
	return backend.Outcome{Success: true, Attempts: 1}
}

func (f *fakeTransport) sent() [][]event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]event.Event, len(f.batches))
	copy(out, f.batches)
	return out
}

func (f *fakeTransport) totalEvents() int {
	n := 0
	for _, b := range f.sent() {
		n += len(b)
	}
	return n
}

func testLogEvent(i int) event.Event {
	return event.LogRecord{
		Body:      "event",
		Severity:  event.SeverityInfo,
		Timestamp: time.Unix(int64(i), 0),
	}
}

func TestDrainChunksByBatchSize(t *testing.T) {
	transport := &fakeTransport{gate: make(chan struct{})}
	s := newScheduler(transport, event.Resource{}, 100, time.Hour, 5*time.Second, zap.NewNop())
	defer s.shutdown(context.Background())

	for i := 0; i < 250; i++ {
		s.enqueue(testLogEvent(i))
	}
	close(transport.gate)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(ctx)

	batches := transport.sent()
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, want := range []int{100, 100, 50} {
		if len(batches[i]) != want {
			t.Errorf("batch %d: expected %d events, got %d", i, want, len(batches[i]))
		}
	}
	if s.pending() != 0 {
		t.Errorf("expected empty queue after flush, got %d", s.pending())
	}
}

func TestDrainPreservesOrder(t *testing.T) {
	transport := &fakeTransport{}
	s := newScheduler(transport, event.Resource{}, 2, time.Hour, 5*time.Second, zap.NewNop())
	defer s.shutdown(context.Background())

	for i := 0; i < 5; i++ {
		s.enqueue(testLogEvent(i))
	}
	s.flush(context.Background())

	var got []int64
	for _, batch := range transport.sent() {
		for _, ev := range batch {
			got = append(got, ev.Time().Unix())
		}
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
	for i := range got {
		if got[i] != int64(i) {
			t.Fatalf("events out of order: %v", got)
		}
	}
}

func TestConcurrentFlushesCoalesce(t *testing.T) {
	transport := &fakeTransport{}
	s := newScheduler(transport, event.Resource{}, 100, time.Hour, 5*time.Second, zap.NewNop())
	defer s.shutdown(context.Background())

	for i := 0; i < 10; i++ {
		s.enqueue(testLogEvent(i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.flush(context.Background())
		}()
	}
	wg.Wait()

	if got := transport.totalEvents(); got != 10 {
		t.Errorf("expected each event sent exactly once, got %d", got)
	}
	if n := len(transport.sent()); n != 1 {
		t.Errorf("expected concurrent flushes to coalesce into 1 send, got %d", n)
	}
}

func TestFailedBatchIsDropped(t *testing.T) {
	transport := &fakeTransport{fail: true}
	s := newScheduler(transport, event.Resource{}, 100, time.Hour, 5*time.Second, zap.NewNop())
	defer s.shutdown(context.Background())

	s.enqueue(testLogEvent(0))
	s.flush(context.Background())

	if s.pending() != 0 {
		t.Errorf("failed batch must not be requeued, pending=%d", s.pending())
	}
	if n := len(transport.sent()); n != 1 {
		t.Errorf("expected exactly 1 send attempt at this layer, got %d", n)
	}
}

func TestShutdownDrainsThenDrops(t *testing.T) {
	transport := &fakeTransport{}
	s := newScheduler(transport, event.Resource{}, 100, time.Hour, 5*time.Second, zap.NewNop())

	for i := 0; i < 3; i++ {
		s.enqueue(testLogEvent(i))
	}
	s.shutdown(context.Background())

	if got := transport.totalEvents(); got != 3 {
		t.Fatalf("expected final drain to deliver 3 events, got %d", got)
	}

	s.enqueue(testLogEvent(99))
	if s.pending() != 0 {
		t.Errorf("enqueue after shutdown must drop, pending=%d", s.pending())
	}

	// Second shutdown returns without blocking.
	s.shutdown(context.Background())
}

func TestIntervalTriggersFlush(t *testing.T) {
	transport := &fakeTransport{}
	s := newScheduler(transport, event.Resource{}, 100, 20*time.Millisecond, 5*time.Second, zap.NewNop())
	defer s.shutdown(context.Background())

	s.enqueue(testLogEvent(0))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if transport.totalEvents() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timer never flushed the queue")
}

func TestBatchSizeTriggersFlush(t *testing.T) {
	transport := &fakeTransport{}
	s := newScheduler(transport, event.Resource{}, 5, time.Hour, 5*time.Second, zap.NewNop())
	defer s.shutdown(context.Background())

	for i := 0; i < 5; i++ {
		s.enqueue(testLogEvent(i))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if transport.totalEvents() == 5 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("reaching the batch size never triggered a flush")
}
