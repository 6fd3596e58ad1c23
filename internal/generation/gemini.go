package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/curriculum"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the model identifier used when none is configured.
const DefaultGeminiModel = "gemini-3-pro-preview"

// GeminiConfig configures GeminiModel.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // empty means the public endpoint
	// HTTPClient overrides the transport; nil uses the SDK default.
	HTTPClient *http.Client
}

// GeminiModel implements Model with the Google Gen AI SDK.
type GeminiModel struct {
	cfg GeminiConfig
	log zerolog.Logger

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiModel creates a GeminiModel. A missing API key is not an error
// here; every Generate call fails instead.
func NewGeminiModel(cfg GeminiConfig, log zerolog.Logger) *GeminiModel {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &GeminiModel{
		cfg: cfg,
		log: log.With().Str("component", "gemini_model").Str("model", cfg.Model).Logger(),
	}
}

func (g *GeminiModel) connect(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:     g.cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: g.cfg.HTTPClient,
		}
		if g.cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
		}
		g.client, g.initErr = genai.NewClient(ctx, cc)
	})
	return g.client, g.initErr
}

// Generate issues one GenerateContent call and returns the response text.
func (g *GeminiModel) Generate(ctx context.Context, req Request) (string, error) {
	if g.cfg.APIKey == "" {
		return "", &Error{Kind: KindMissingCredential, Message: ErrMissingCredential.Error(), Err: ErrMissingCredential}
	}
	if req.Schema == nil {
		return "", errors.New("gemini: response schema required")
	}

	client, err := g.connect(ctx)
	if err != nil {
		return "", fmt.Errorf("gemini: create client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(req.Prompt), GenerateContentConfig(req))
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			g.log.Debug().Int("code", apiErr.Code).Str("status", apiErr.Status).Msg("Gemini API error")
			return "", &Error{Kind: KindTransport, Message: apiErr.Message, Err: err}
		}
		return "", err
	}
	return resp.Text(), nil
}

// GenerateContentConfig maps a Request onto the SDK configuration bundle.
func GenerateContentConfig(req Request) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: req.Sampling.ResponseMIMEType,
		ResponseSchema:   toGenaiSchema(req.Schema),
		Temperature:      genai.Ptr(req.Sampling.Temperature),
		TopP:             genai.Ptr(req.Sampling.TopP),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(req.Sampling.ThinkingBudget),
		},
	}
}

func toGenaiSchema(s *curriculum.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(s.Type),
		Description: s.Description,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, p := range s.Properties {
			out.Properties[p.Name] = toGenaiSchema(p.Schema)
			out.PropertyOrdering = append(out.PropertyOrdering, p.Name)
		}
	}
	return out
}
