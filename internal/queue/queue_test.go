package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"tailwise-insights/internal/genai"
)

// fakeClient records dispatch times and served prompts.
type fakeClient struct {
	mu      sync.Mutex
	times   []time.Time
	prompts []string
	delay   time.Duration
	err     error
}

func (f *fakeClient) Generate(_ context.Context, req *genai.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.times = append(f.times, time.Now())
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return "response to " + req.Prompt, nil
}

func (f *fakeClient) snapshot() ([]time.Time, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.times...), append([]string(nil), f.prompts...)
}

func submitAll(t *testing.T, q *RateLimited, prompts []string, stagger time.Duration) {
	t.Helper()

	var wg sync.WaitGroup
	for _, p := range prompts {
		wg.Add(1)
		go func(prompt string) {
			defer wg.Done()
			if _, err := q.Generate(context.Background(), &genai.GenerateRequest{Prompt: prompt}); err != nil {
				t.Errorf("Generate(%q): %v", prompt, err)
			}
		}(p)
		// Stagger submissions so arrival order is deterministic.
		time.Sleep(stagger)
	}
	wg.Wait()
}

func TestWindowInvariant(t *testing.T) {
	t.Parallel()

	const window = 300 * time.Millisecond
	inner := &fakeClient{}
	q := New(inner, Limits{MaxRequestsPerWindow: 3, WindowDuration: window}, zaptest.NewLogger(t))
	defer q.Close()

	submitAll(t, q, []string{"r1", "r2", "r3", "r4", "r5"}, 10*time.Millisecond)

	times, _ := inner.snapshot()
	if len(times) != 5 {
		t.Fatalf("expected 5 dispatches, got %d", len(times))
	}

	// At no point may more than 3 dispatches fall inside any trailing
	// window. Equivalent check: dispatch i+3 happens at least a full window
	// after dispatch i (small scheduling tolerance allowed).
	const tolerance = 20 * time.Millisecond
	for i := 0; i+3 < len(times); i++ {
		gap := times[i+3].Sub(times[i])
		if gap < window-tolerance {
			t.Fatalf("dispatch %d only %v after dispatch %d, window is %v", i+3, gap, i, window)
		}
	}
}

func TestSaturatedSubmissionsWaitForWindow(t *testing.T) {
	t.Parallel()

	const window = 250 * time.Millisecond
	inner := &fakeClient{}
	q := New(inner, Limits{MaxRequestsPerWindow: 3, WindowDuration: window}, zaptest.NewLogger(t))
	defer q.Close()

	start := time.Now()
	submitAll(t, q, []string{"a", "b", "c", "d", "e"}, 5*time.Millisecond)

	times, _ := inner.snapshot()
	if len(times) != 5 {
		t.Fatalf("expected 5 dispatches, got %d", len(times))
	}

	// The first three go out immediately, requests 4 and 5 only after the
	// oldest in-window timestamp ages out.
	const tolerance = 20 * time.Millisecond
	for i := 0; i < 3; i++ {
		if d := times[i].Sub(start); d > 150*time.Millisecond {
			t.Fatalf("dispatch %d should be immediate, was %v after start", i, d)
		}
	}
	for i := 3; i < 5; i++ {
		earliest := times[i-3].Add(window)
		if times[i].Before(earliest.Add(-tolerance)) {
			t.Fatalf("dispatch %d happened %v before window expiry", i, earliest.Sub(times[i]))
		}
	}
}

func TestFIFOOrdering(t *testing.T) {
	t.Parallel()

	// A slow upstream forces every later submission to queue behind the
	// first; the drain loop must serve them in arrival order.
	inner := &fakeClient{delay: 30 * time.Millisecond}
	q := New(inner, Limits{MaxRequestsPerWindow: 100, WindowDuration: time.Minute}, zaptest.NewLogger(t))
	defer q.Close()

	prompts := []string{"p0", "p1", "p2", "p3", "p4", "p5"}
	submitAll(t, q, prompts, 5*time.Millisecond)

	_, served := inner.snapshot()
	if len(served) != len(prompts) {
		t.Fatalf("expected %d dispatches, got %d", len(prompts), len(served))
	}
	for i, p := range prompts {
		if served[i] != p {
			t.Fatalf("dispatch order broken at %d: got %q, want %q (all: %v)", i, served[i], p, served)
		}
	}
}

func TestErrorReachesOnlyItsCaller(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("upstream exploded")
	inner := &fakeClient{err: wantErr}
	q := New(inner, Limits{MaxRequestsPerWindow: 10, WindowDuration: time.Minute}, zaptest.NewLogger(t))
	defer q.Close()

	_, err := q.Generate(context.Background(), &genai.GenerateRequest{Prompt: "boom"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	// The queue stays usable for the next caller.
	inner.err = nil
	if _, err := q.Generate(context.Background(), &genai.GenerateRequest{Prompt: "fine"}); err != nil {
		t.Fatalf("queue should survive an upstream error: %v", err)
	}
}

func TestCancelledWhileQueuedIsSkipped(t *testing.T) {
	t.Parallel()

	const window = 200 * time.Millisecond
	inner := &fakeClient{}
	q := New(inner, Limits{MaxRequestsPerWindow: 1, WindowDuration: window}, zaptest.NewLogger(t))
	defer q.Close()

	// First call consumes the only window slot.
	if _, err := q.Generate(context.Background(), &genai.GenerateRequest{Prompt: "first"}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	// Second call queues, then gives up before capacity frees.
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Generate(ctx, &genai.GenerateRequest{Prompt: "second"})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("cancelled caller did not return")
	}

	// Give the drain loop time to reach and discard the dead request.
	time.Sleep(2 * window)
	times, _ := inner.snapshot()
	if len(times) != 1 {
		t.Fatalf("cancelled request must not be dispatched, saw %d dispatches", len(times))
	}
}

func TestGenerateAfterClose(t *testing.T) {
	t.Parallel()

	q := New(&fakeClient{}, Limits{}, zaptest.NewLogger(t))
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := q.Generate(context.Background(), &genai.GenerateRequest{Prompt: "late"})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
