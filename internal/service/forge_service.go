package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/generation"
	"github.com/stemsi/curricuforge/internal/model"
	"github.com/stemsi/curricuforge/internal/session"
	"github.com/stemsi/curricuforge/internal/view"
	"github.com/stemsi/curricuforge/internal/worker"
)

// BusyMessage is shown when a submission could not be queued.
const BusyMessage = "The forge is busy right now. Please try again in a moment."

// Recording an outcome is the only way out of Generating, so store errors
// there are retried. The generation call itself is never repeated.
const (
	finishAttempts = 5
	finishBackoff  = 100 * time.Millisecond
)

// Generator produces a curriculum for one set of parameters.
type Generator interface {
	Generate(ctx context.Context, params model.GenerationParams) (*model.Curriculum, error)
}

// Dispatcher queues generation jobs.
type Dispatcher interface {
	Enqueue(ctx context.Context, job worker.Job) error
}

// ForgeService drives each session's view state machine: it validates
// transitions against the store, queues generation and publishes every change.
type ForgeService struct {
	store      session.Store
	broker     session.Broker
	generator  Generator
	dispatcher Dispatcher
	log        zerolog.Logger

	finishBackoff time.Duration
}

// NewForgeService creates a new ForgeService.
func NewForgeService(
	store session.Store,
	broker session.Broker,
	generator Generator,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *ForgeService {
	return &ForgeService{
		store:         store,
		broker:        broker,
		generator:     generator,
		dispatcher:    dispatcher,
		log:           log.With().Str("component", "forge_service").Logger(),
		finishBackoff: finishBackoff,
	}
}

// Options returns the selectable form values and their defaults.
func (s *ForgeService) Options() model.FormOptions {
	return model.NewFormOptions()
}

// State returns the current snapshot of a session.
func (s *ForgeService) State(ctx context.Context, sessionID string) (view.Snapshot, error) {
	return s.store.Load(ctx, sessionID)
}

// Submit moves an Idle session to Generating and queues the generation call.
// It fails with view.ErrInvalidTransition from any other state. If the job
// cannot be queued the session goes straight to Error.
func (s *ForgeService) Submit(ctx context.Context, sessionID string, params model.GenerationParams) (view.Snapshot, error) {
	params.Normalize()

	snap, err := s.store.Update(ctx, sessionID, func(cur view.State) (view.State, error) {
		return view.Apply(cur, view.Submit{Params: params})
	})
	if err != nil {
		return snap, err
	}
	s.publish(ctx, sessionID, snap)

	s.log.Info().
		Str("session_id", sessionID).
		Str("subject", params.Subject).
		Str("level", string(params.Level)).
		Msg("Generation requested")

	if err := s.dispatcher.Enqueue(ctx, worker.NewJob(sessionID, params)); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Could not queue generation")
		return s.finish(ctx, sessionID, view.Fail{Message: BusyMessage})
	}
	return snap, nil
}

// Handle runs a queued generation job and records its outcome.
func (s *ForgeService) Handle(ctx context.Context, job worker.Job) {
	cur, err := s.generator.Generate(ctx, job.Params)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("session_id", job.SessionID).
			Str("kind", string(generation.KindOf(err))).
			Msg("Generation failed")
		_, _ = s.finish(ctx, job.SessionID, view.Fail{Message: generation.UserMessage(err)})
		return
	}
	_, _ = s.finish(ctx, job.SessionID, view.Succeed{Curriculum: cur})
}

// Abandon fails a session whose job never ran.
func (s *ForgeService) Abandon(ctx context.Context, job worker.Job, err error) {
	msg := BusyMessage
	if !errors.Is(err, worker.ErrStopped) && !errors.Is(err, worker.ErrQueueFull) {
		msg = generation.FallbackMessage
	}
	s.log.Warn().Err(err).Str("session_id", job.SessionID).Msg("Generation abandoned")
	_, _ = s.finish(ctx, job.SessionID, view.Fail{Message: msg})
}

// Reset returns a Viewing or Error session to Idle, discarding what it held.
func (s *ForgeService) Reset(ctx context.Context, sessionID string) (view.Snapshot, error) {
	snap, err := s.store.Update(ctx, sessionID, func(cur view.State) (view.State, error) {
		return view.Apply(cur, view.Reset{})
	})
	if err != nil {
		return snap, err
	}
	s.publish(ctx, sessionID, snap)
	return snap, nil
}

// Subscribe streams a session's snapshots as they change.
func (s *ForgeService) Subscribe(ctx context.Context, sessionID string) (<-chan view.Snapshot, func(), error) {
	return s.broker.Subscribe(ctx, sessionID)
}

func (s *ForgeService) finish(ctx context.Context, sessionID string, e view.Event) (view.Snapshot, error) {
	log := s.log.With().Str("session_id", sessionID).Str("event", e.Name()).Logger()
	apply := func(cur view.State) (view.State, error) {
		return view.Apply(cur, e)
	}

	var (
		snap view.Snapshot
		err  error
	)
	backoff := s.finishBackoff
	for attempt := 1; attempt <= finishAttempts; attempt++ {
		snap, err = s.store.Update(ctx, sessionID, apply)
		if err == nil || errors.Is(err, view.ErrInvalidTransition) || attempt == finishAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Store update failed, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return snap, ctx.Err()
		}
		backoff *= 2
	}
	if err != nil {
		log.Error().Err(err).Msg("Could not record generation outcome")
		return snap, err
	}
	s.publish(ctx, sessionID, snap)
	log.Info().Str("status", string(snap.Status)).Msg("Generation settled")
	return snap, nil
}

func (s *ForgeService) publish(ctx context.Context, sessionID string, snap view.Snapshot) {
	if err := s.broker.Publish(ctx, sessionID, snap); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Publish state change failed")
	}
}
