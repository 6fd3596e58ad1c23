package model

import "strings"

// Level enumerates the academic levels a curriculum can target.
type Level string

const (
	LevelHighSchool              Level = "High School"
	LevelUndergraduate           Level = "Undergraduate"
	LevelGraduate                Level = "Graduate/Master"
	LevelProfessionalCertificate Level = "Professional Certificate"
	LevelCorporateTraining       Level = "Corporate Training"
)

// Levels lists every Level in form order.
var Levels = []Level{
	LevelHighSchool,
	LevelUndergraduate,
	LevelGraduate,
	LevelProfessionalCertificate,
	LevelCorporateTraining,
}

// ParseLevel resolves a form value to a Level. The spaced spelling
// "Graduate / Master" is accepted as an alias.
func ParseLevel(s string) (Level, bool) {
	s = strings.TrimSpace(s)
	if s == "Graduate / Master" {
		return LevelGraduate, true
	}
	for _, l := range Levels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// OptimizationPreference enumerates what the generated program should optimize for.
type OptimizationPreference string

const (
	OptimizeSpeedToMarket OptimizationPreference = "Speed to Market"
	OptimizeAcademicRigor OptimizationPreference = "Academic Rigor"
	OptimizeCostEffective OptimizationPreference = "Cost-Effective"
	OptimizeHighTechFocus OptimizationPreference = "High-Tech Focus"
)

// OptimizationPreferences lists every OptimizationPreference in form order.
var OptimizationPreferences = []OptimizationPreference{
	OptimizeAcademicRigor,
	OptimizeSpeedToMarket,
	OptimizeCostEffective,
	OptimizeHighTechFocus,
}

// ParseOptimizationPreference resolves a form value to an OptimizationPreference.
func ParseOptimizationPreference(s string) (OptimizationPreference, bool) {
	s = strings.TrimSpace(s)
	for _, p := range OptimizationPreferences {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// GenerationParams is the user-authored input of a single generation request.
type GenerationParams struct {
	Subject                string                 `json:"subject" form:"subject" binding:"required,notblank"`
	Level                  Level                  `json:"level" form:"level" binding:"required,curriculum_level"`
	Duration               string                 `json:"duration" form:"duration" binding:"required,notblank"`
	IndustryFocus          string                 `json:"industryFocus" form:"industryFocus" binding:"required,notblank"`
	AdditionalGoals        string                 `json:"additionalGoals,omitempty" form:"additionalGoals"`
	OptimizationPreference OptimizationPreference `json:"optimizationPreference" form:"optimizationPreference" binding:"required,optimization_preference"`
}

// DefaultGenerationParams returns the values a fresh form starts with.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Level:                  LevelUndergraduate,
		Duration:               "12 Weeks",
		OptimizationPreference: OptimizeAcademicRigor,
	}
}

// Normalize trims free text and canonicalizes enum aliases after binding.
func (p *GenerationParams) Normalize() {
	p.Subject = strings.TrimSpace(p.Subject)
	p.Duration = strings.TrimSpace(p.Duration)
	p.IndustryFocus = strings.TrimSpace(p.IndustryFocus)
	p.AdditionalGoals = strings.TrimSpace(p.AdditionalGoals)
	if l, ok := ParseLevel(string(p.Level)); ok {
		p.Level = l
	}
	if o, ok := ParseOptimizationPreference(string(p.OptimizationPreference)); ok {
		p.OptimizationPreference = o
	}
}

// FormOptions is the payload describing the generation form.
type FormOptions struct {
	Levels                  []Level                  `json:"levels"`
	OptimizationPreferences []OptimizationPreference `json:"optimizationPreferences"`
	Defaults                GenerationParams         `json:"defaults"`
}

// NewFormOptions lists every selectable value in display order.
func NewFormOptions() FormOptions {
	return FormOptions{
		Levels:                  Levels,
		OptimizationPreferences: OptimizationPreferences,
		Defaults:                DefaultGenerationParams(),
	}
}
