package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/model"
)

var (
	// ErrQueueFull is returned by Enqueue when every queue slot is taken.
	ErrQueueFull = errors.New("generation queue is full")
	// ErrStopped is returned by Enqueue once shutdown has begun.
	ErrStopped = errors.New("generation worker is shutting down")
)

// Job is one pending curriculum generation for a session.
type Job struct {
	ID         string
	SessionID  string
	Params     model.GenerationParams
	EnqueuedAt time.Time
}

// NewJob stamps a job for sessionID.
func NewJob(sessionID string, params model.GenerationParams) Job {
	return Job{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Params:     params,
		EnqueuedAt: time.Now(),
	}
}

// Handler runs jobs for the worker.
type Handler interface {
	// Handle performs the job. It is called with a context that is not
	// cancelled on shutdown: an issued generation call is never abandoned.
	Handle(ctx context.Context, job Job)

	// Abandon is called for jobs that never started, with err explaining why.
	Abandon(ctx context.Context, job Job, err error)
}

// GenerationWorker runs generation jobs on a fixed number of goroutines fed
// by a bounded in-process queue.
type GenerationWorker struct {
	jobs    chan Job
	workers int
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	running map[string]Job
}

// NewGenerationWorker creates a new GenerationWorker.
func NewGenerationWorker(workers, queueSize int, log zerolog.Logger) *GenerationWorker {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &GenerationWorker{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		log:     log.With().Str("component", "generation_worker").Logger(),
		running: make(map[string]Job),
	}
}

// Enqueue hands job to the pool without blocking.
func (w *GenerationWorker) Enqueue(_ context.Context, job Job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the pool until ctx is cancelled, then waits for in-flight jobs
// and abandons whatever is still queued. Call in a goroutine.
func (w *GenerationWorker) Start(ctx context.Context, h Handler) {
	w.log.Info().Int("workers", w.workers).Int("queue_size", cap(w.jobs)).Msg("Worker started")

	var wg sync.WaitGroup
	for i := range w.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, h, i)
		}()
	}

	<-ctx.Done()
	w.log.Info().Msg("Worker stopping...")

	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	wg.Wait()
	w.drain(h)
	w.log.Info().Msg("Worker stopped")
}

func (w *GenerationWorker) loop(ctx context.Context, h Handler, slot int) {
	for {
		// Queued jobs left at shutdown belong to drain.
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			w.process(context.WithoutCancel(ctx), h, job, slot)
		}
	}
}

func (w *GenerationWorker) process(ctx context.Context, h Handler, job Job, slot int) {
	log := w.log.With().Str("job_id", job.ID).Str("session_id", job.SessionID).Int("slot", slot).Logger()
	log.Debug().Dur("queued_for", time.Since(job.EnqueuedAt)).Msg("Job started")

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Job panicked")
			h.Abandon(ctx, job, fmt.Errorf("generation job panicked: %v", r))
		}
	}()

	w.track(job, true)
	defer w.track(job, false)

	start := time.Now()
	h.Handle(ctx, job)
	log.Info().Dur("took", time.Since(start)).Msg("Job finished")
}

// drain abandons every job still sitting in the queue.
func (w *GenerationWorker) drain(h Handler) {
	drained := 0
	for {
		select {
		case job := <-w.jobs:
			h.Abandon(context.Background(), job, ErrStopped)
			drained++
		default:
			if drained > 0 {
				w.log.Info().Int("count", drained).Msg("Abandoned queued jobs")
			}
			return
		}
	}
}

func (w *GenerationWorker) track(job Job, running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if running {
		w.running[job.ID] = job
	} else {
		delete(w.running, job.ID)
	}
}

// AbandonRunning fails the sessions of jobs whose call is still in flight.
// Used when shutdown stops waiting for them; a result that arrives later is
// rejected by the state machine.
func (w *GenerationWorker) AbandonRunning(ctx context.Context, h Handler) int {
	w.mu.RLock()
	jobs := make([]Job, 0, len(w.running))
	for _, job := range w.running {
		jobs = append(jobs, job)
	}
	w.mu.RUnlock()

	for _, job := range jobs {
		h.Abandon(ctx, job, ErrStopped)
	}
	if len(jobs) > 0 {
		w.log.Warn().Int("count", len(jobs)).Msg("Abandoned running jobs")
	}
	return len(jobs)
}

// Pending reports how many jobs are waiting for a free slot.
func (w *GenerationWorker) Pending() int {
	return len(w.jobs)
}
