package model

// Curriculum is the structured program description returned by the model.
type Curriculum struct {
	Title                string               `json:"title"`
	Level                string               `json:"level"`
	Overview             string               `json:"overview"`
	TargetAudience       string               `json:"targetAudience"`
	LearningOutcomes     []string             `json:"learningOutcomes"`
	Modules              []Module             `json:"modules"`
	IndustryAlignment    IndustryAlignment    `json:"industryAlignment"`
	EconomicOptimization EconomicOptimization `json:"economicOptimization"`
	Technologies         []string             `json:"technologies"`
}

// Module is one stage of a curriculum. Modules are kept in pedagogical order.
type Module struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Duration           string     `json:"duration"`
	Description        string     `json:"description"`
	LearningObjectives []string   `json:"learningObjectives"`
	Topics             []string   `json:"topics"`
	Assessment         Assessment `json:"assessment"`
}

// Assessment describes how a module is evaluated.
type Assessment struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// IndustryAlignment maps the program to the job market.
type IndustryAlignment struct {
	KeySkills       []string `json:"keySkills"`
	JobRoles        []string `json:"jobRoles"`
	MarketRelevance string   `json:"marketRelevance"`
}

// EconomicOptimization describes the learner ROI strategy.
type EconomicOptimization struct {
	EfficiencyStrategy      string   `json:"efficiencyStrategy"`
	EstimatedMarketValue    string   `json:"estimatedMarketValue"`
	ResourceRecommendations []string `json:"resourceRecommendations"`
}
