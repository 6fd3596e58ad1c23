// Package curriculumtest provides canned model output for tests.
package curriculumtest

import "github.com/stemsi/curricuforge/internal/model"

// SampleJSON is a schema-conforming model response with three modules.
const SampleJSON = `{
  "title": "Generative AI Engineering",
  "level": "Undergraduate",
  "overview": "A twelve week program covering LLM application engineering.",
  "targetAudience": "Second-year computer science students",
  "learningOutcomes": [
    "Build retrieval-augmented applications",
    "Evaluate model output quality"
  ],
  "modules": [
    {
      "id": "m1",
      "title": "Foundations of Language Models",
      "duration": "Week 1-3",
      "description": "Tokenization, attention and pretraining.",
      "learningObjectives": ["Explain transformer attention"],
      "topics": ["Tokenizers", "Attention", "Scaling laws"],
      "assessment": {"type": "Quiz", "description": "Concept check on transformer internals"}
    },
    {
      "id": "m2",
      "title": "Retrieval and the Modern Data Stack",
      "duration": "Week 4-8",
      "description": "Embedding pipelines over warehouse data.",
      "learningObjectives": ["Design an embedding pipeline", "Operate a vector index"],
      "topics": ["dbt models", "Vector stores", "Chunking"],
      "assessment": {"type": "Project", "description": "Ship a RAG service over a sample warehouse"}
    },
    {
      "id": "m3",
      "title": "Capstone: Production GenAI",
      "duration": "Week 9-12",
      "description": "Deploy, monitor and cost-optimize an LLM feature.",
      "learningObjectives": ["Deploy with FastAPI"],
      "topics": ["Serving", "Observability", "Cost control"],
      "assessment": {"type": "Capstone", "description": "Industry panel review"}
    }
  ],
  "industryAlignment": {
    "keySkills": ["Python", "Prompt engineering", "Data modeling"],
    "jobRoles": ["AI Engineer", "Analytics Engineer"],
    "marketRelevance": "Demand for LLM engineers keeps outpacing supply."
  },
  "economicOptimization": {
    "efficiencyStrategy": "Reuse open models and free-tier tooling.",
    "estimatedMarketValue": "Entry-level AI engineering roles",
    "resourceRecommendations": ["Hugging Face course", "dbt Learn"]
  },
  "technologies": ["Python", "FastAPI", "Hugging Face", "dbt"]
}`

// SampleModuleTitles lists the module titles of SampleJSON in order.
var SampleModuleTitles = []string{
	"Foundations of Language Models",
	"Retrieval and the Modern Data Stack",
	"Capstone: Production GenAI",
}

// ScenarioParams is the form input used by the end-to-end scenarios.
func ScenarioParams() model.GenerationParams {
	return model.GenerationParams{
		Subject:                "Generative AI Engineering",
		Level:                  model.LevelUndergraduate,
		Duration:               "12 Weeks",
		IndustryFocus:          "Modern Data Stack",
		OptimizationPreference: model.OptimizeAcademicRigor,
	}
}
