package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/curriculum/curriculumtest"
)

type recordingHandler struct {
	mu        sync.Mutex
	handled   []string
	abandoned map[string]error
	block     chan struct{}
	started   chan string
	panicOn   string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{abandoned: make(map[string]error), started: make(chan string, 16)}
}

func (h *recordingHandler) Handle(ctx context.Context, job Job) {
	h.started <- job.SessionID
	if job.SessionID == h.panicOn {
		panic("boom")
	}
	if h.block != nil {
		<-h.block
	}
	if ctx.Err() != nil {
		panic("handler context must not be cancelled")
	}
	h.mu.Lock()
	h.handled = append(h.handled, job.SessionID)
	h.mu.Unlock()
}

func (h *recordingHandler) Abandon(_ context.Context, job Job, err error) {
	h.mu.Lock()
	h.abandoned[job.SessionID] = err
	h.mu.Unlock()
}

func TestEnqueueRunsJob(t *testing.T) {
	w := NewGenerationWorker(2, 4, zerolog.Nop())
	h := newRecordingHandler()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { w.Start(ctx, h); close(done) }()

	if err := w.Enqueue(ctx, NewJob("s1", curriculumtest.ScenarioParams())); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case id := <-h.started:
		if id != "s1" {
			t.Fatalf("started %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job never started")
	}

	cancel()
	<-done
	if len(h.handled) != 1 {
		t.Fatalf("handled=%v", h.handled)
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	w := NewGenerationWorker(1, 1, zerolog.Nop())
	params := curriculumtest.ScenarioParams()

	if err := w.Enqueue(context.Background(), NewJob("a", params)); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := w.Enqueue(context.Background(), NewJob("b", params)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if w.Pending() != 1 {
		t.Fatalf("pending=%d", w.Pending())
	}
}

func TestShutdownFinishesInFlightAndAbandonsQueued(t *testing.T) {
	w := NewGenerationWorker(1, 4, zerolog.Nop())
	h := newRecordingHandler()
	h.block = make(chan struct{})
	params := curriculumtest.ScenarioParams()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { w.Start(ctx, h); close(done) }()

	_ = w.Enqueue(ctx, NewJob("inflight", params))
	<-h.started
	_ = w.Enqueue(ctx, NewJob("queued", params))

	cancel()
	// Let the in-flight call finish only after shutdown has begun.
	time.Sleep(20 * time.Millisecond)
	if err := w.Enqueue(context.Background(), NewJob("late", params)); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	close(h.block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.handled) != 1 || h.handled[0] != "inflight" {
		t.Fatalf("handled=%v", h.handled)
	}
	if !errors.Is(h.abandoned["queued"], ErrStopped) {
		t.Fatalf("abandoned=%v", h.abandoned)
	}
}

func TestPanicIsAbandoned(t *testing.T) {
	w := NewGenerationWorker(1, 1, zerolog.Nop())
	h := newRecordingHandler()
	h.panicOn = "bad"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { w.Start(ctx, h); close(done) }()

	_ = w.Enqueue(ctx, NewJob("bad", curriculumtest.ScenarioParams()))
	<-h.started

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		err := h.abandoned["bad"]
		h.mu.Unlock()
		if err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("panicking job was not abandoned")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestAbandonRunningFailsInFlightJobs(t *testing.T) {
	w := NewGenerationWorker(1, 4, zerolog.Nop())
	h := newRecordingHandler()
	h.block = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { w.Start(ctx, h); close(done) }()

	_ = w.Enqueue(ctx, NewJob("stuck", curriculumtest.ScenarioParams()))
	<-h.started

	if n := w.AbandonRunning(context.Background(), h); n != 1 {
		t.Fatalf("abandoned %d jobs", n)
	}
	h.mu.Lock()
	err := h.abandoned["stuck"]
	h.mu.Unlock()
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("abandoned=%v", err)
	}

	close(h.block)
	cancel()
	<-done
	if n := w.AbandonRunning(context.Background(), h); n != 0 {
		t.Fatalf("finished job still tracked: %d", n)
	}
}
