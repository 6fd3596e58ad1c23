// Package curriculum builds the generation request sent to the model and
// parses the curriculum document it returns.
package curriculum

import (
	"fmt"
	"strings"

	"github.com/stemsi/curricuforge/internal/model"
)

// NoGoals is written in place of empty additional goals.
const NoGoals = "None"

const promptTemplate = `Design a comprehensive, industry-aligned curriculum.
Subject: %s
Level: %s
Duration: %s
Industry Focus: %s
Optimization Preference: %s
Specific Goals: %s

SPECIAL REQUIREMENTS:
1. Include a robust tech stack (prioritize tools like Python, FastAPI, IBM AI, Hugging Face where relevant).
2. Map out specific "Economic Optimization" strategies to ensure high ROI for learners.
3. Ensure topic plans are granular and assessments are authentic to the industry focus.`

// Request is the prompt and response schema for one generation call.
type Request struct {
	Prompt string
	Schema *Schema
}

// BuildPrompt renders the instruction text for params.
func BuildPrompt(params model.GenerationParams) string {
	goals := params.AdditionalGoals
	if strings.TrimSpace(goals) == "" {
		goals = NoGoals
	}
	return fmt.Sprintf(promptTemplate,
		params.Subject,
		params.Level,
		params.Duration,
		params.IndustryFocus,
		params.OptimizationPreference,
		goals,
	)
}

// BuildRequest pairs the prompt for params with the curriculum response schema.
func BuildRequest(params model.GenerationParams) Request {
	return Request{
		Prompt: BuildPrompt(params),
		Schema: ResponseSchema(),
	}
}
