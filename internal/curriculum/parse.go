package curriculum

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stemsi/curricuforge/internal/model"
)

// ErrMalformedResponse is returned when the model text is not a curriculum document.
var ErrMalformedResponse = errors.New("malformed curriculum response")

// Parse decodes the raw model output into a Curriculum. The text must be a
// JSON object satisfying ResponseSchema; nothing is defaulted.
func Parse(raw string) (*model.Curriculum, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	schema := ResponseSchema()
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	// Decode only what was validated.
	pruned, err := json.Marshal(schema.Prune(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	var c model.Curriculum
	if err := json.Unmarshal(pruned, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &c, nil
}
