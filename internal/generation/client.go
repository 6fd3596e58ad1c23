// Package generation performs the single model call that turns generation
// parameters into a curriculum.
package generation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/curriculum"
	"github.com/stemsi/curricuforge/internal/model"
)

// SamplingConfig is the fixed decoding configuration sent with every call.
type SamplingConfig struct {
	Temperature      float32
	TopP             float32
	ThinkingBudget   int32
	ResponseMIMEType string
}

// DefaultSampling returns the sampling literals used for curriculum generation.
func DefaultSampling() SamplingConfig {
	return SamplingConfig{
		Temperature:      0.75,
		TopP:             0.95,
		ThinkingBudget:   16000,
		ResponseMIMEType: "application/json",
	}
}

// Request is everything a Model needs for one call.
type Request struct {
	Prompt   string
	Schema   *curriculum.Schema
	Sampling SamplingConfig
}

// Model is the external text generator. Implementations make exactly one
// request per call and return the raw response text.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Client builds the request, calls the Model once and parses the result.
type Client struct {
	backend  Model
	sampling SamplingConfig
	log      zerolog.Logger
}

// NewClient creates a Client around backend using DefaultSampling.
func NewClient(backend Model, log zerolog.Logger) *Client {
	return &Client{
		backend:  backend,
		sampling: DefaultSampling(),
		log:      log.With().Str("component", "generation_client").Logger(),
	}
}

// Generate produces a Curriculum for params. Any failure is returned as *Error.
func (c *Client) Generate(ctx context.Context, params model.GenerationParams) (*model.Curriculum, error) {
	built := curriculum.BuildRequest(params)
	start := time.Now()

	raw, err := c.backend.Generate(ctx, Request{
		Prompt:   built.Prompt,
		Schema:   built.Schema,
		Sampling: c.sampling,
	})
	if err != nil {
		gerr := callError(err)
		c.log.Warn().Err(err).
			Str("kind", string(gerr.Kind)).
			Dur("elapsed", time.Since(start)).
			Msg("Model call failed")
		return nil, gerr
	}

	cur, err := curriculum.Parse(raw)
	if err != nil {
		c.log.Warn().Err(err).
			Int("response_bytes", len(raw)).
			Dur("elapsed", time.Since(start)).
			Msg("Model returned an unusable curriculum")
		return nil, &Error{Kind: KindMalformedResponse, Message: err.Error(), Err: err}
	}

	c.log.Debug().
		Str("subject", params.Subject).
		Int("modules", len(cur.Modules)).
		Dur("elapsed", time.Since(start)).
		Msg("Curriculum generated")
	return cur, nil
}
