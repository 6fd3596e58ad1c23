package curriculum

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/stemsi/curricuforge/internal/curriculum/curriculumtest"
	"github.com/stemsi/curricuforge/internal/model"
)

func TestBuildPromptEmbedsEveryValue(t *testing.T) {
	for _, level := range model.Levels {
		for _, pref := range model.OptimizationPreferences {
			params := model.GenerationParams{
				Subject:                "Quantum Networking",
				Level:                  level,
				Duration:               "6 Months",
				IndustryFocus:          "Telecom",
				AdditionalGoals:        "Hands-on lab every week",
				OptimizationPreference: pref,
			}
			prompt := BuildPrompt(params)

			want := []string{
				"Subject: Quantum Networking",
				"Level: " + string(level),
				"Duration: 6 Months",
				"Industry Focus: Telecom",
				"Optimization Preference: " + string(pref),
				"Specific Goals: Hands-on lab every week",
			}
			for _, line := range want {
				if !strings.Contains(prompt, line+"\n") {
					t.Fatalf("prompt missing line %q:\n%s", line, prompt)
				}
			}
		}
	}
}

func TestBuildPromptDirectives(t *testing.T) {
	prompt := BuildPrompt(curriculumtest.ScenarioParams())
	for _, directive := range []string{"tech stack", "Economic Optimization", "ROI", "granular", "authentic to the industry focus"} {
		if !strings.Contains(prompt, directive) {
			t.Fatalf("prompt missing directive %q", directive)
		}
	}
}

func TestBuildPromptSubstitutesNone(t *testing.T) {
	for _, goals := range []string{"", "   "} {
		params := curriculumtest.ScenarioParams()
		params.AdditionalGoals = goals
		if prompt := BuildPrompt(params); !strings.Contains(prompt, "Specific Goals: None\n") {
			t.Fatalf("goals=%q: expected None substitution:\n%s", goals, prompt)
		}
	}
}

func TestBuildRequestIsDeterministic(t *testing.T) {
	params := curriculumtest.ScenarioParams()
	a := BuildRequest(params)
	b := BuildRequest(params)
	if a.Prompt != b.Prompt {
		t.Fatalf("prompts differ")
	}
	if !reflect.DeepEqual(a.Schema, b.Schema) {
		t.Fatalf("schemas differ")
	}
}

func TestResponseSchemaRequiredFields(t *testing.T) {
	s := ResponseSchema()

	assertRequired(t, "root", s, "title", "level", "overview", "targetAudience", "learningOutcomes",
		"modules", "industryAlignment", "economicOptimization", "technologies")

	module := s.Property("modules").Items
	assertRequired(t, "module", module, "id", "title", "duration", "description",
		"learningObjectives", "topics", "assessment")
	assertRequired(t, "assessment", module.Property("assessment"), "type", "description")
	assertRequired(t, "industryAlignment", s.Property("industryAlignment"), "keySkills", "jobRoles", "marketRelevance")
	assertRequired(t, "economicOptimization", s.Property("economicOptimization"),
		"efficiencyStrategy", "estimatedMarketValue", "resourceRecommendations")

	for _, name := range []string{"learningOutcomes", "technologies"} {
		p := s.Property(name)
		if p.Type != TypeArray || p.Items == nil || p.Items.Type != TypeString {
			t.Fatalf("%s: expected array of strings", name)
		}
	}
}

func assertRequired(t *testing.T, label string, s *Schema, want ...string) {
	t.Helper()
	if s == nil || s.Type != TypeObject {
		t.Fatalf("%s: expected object schema", label)
	}
	got := append([]string(nil), s.Required...)
	sort.Strings(got)
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("%s: required=%v want=%v", label, got, want)
	}
}

func TestParseRoundTrip(t *testing.T) {
	c, err := Parse("\n  " + curriculumtest.SampleJSON + "\n\t")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var want model.Curriculum
	if err := json.Unmarshal([]byte(curriculumtest.SampleJSON), &want); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	if !reflect.DeepEqual(*c, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *c, want)
	}
	if len(c.Modules) != len(curriculumtest.SampleModuleTitles) {
		t.Fatalf("modules=%d", len(c.Modules))
	}
	for i, title := range curriculumtest.SampleModuleTitles {
		if c.Modules[i].Title != title {
			t.Fatalf("module %d title=%q want %q", i, c.Modules[i].Title, title)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not json",
		"{",
		`{"title": "x"`,
		"[]",
		`"just a string"`,
		"null",
		"```json\n" + curriculumtest.SampleJSON + "\n```",
	}
	for _, raw := range cases {
		c, err := Parse(raw)
		if err == nil {
			t.Fatalf("raw=%q: expected error", raw)
		}
		if c != nil {
			t.Fatalf("raw=%q: expected nil curriculum", raw)
		}
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("raw=%q: err=%v is not ErrMalformedResponse", raw, err)
		}
	}
}

func TestParseRejectsEachMissingRequiredField(t *testing.T) {
	for _, path := range requiredPaths(ResponseSchema(), nil) {
		for _, mode := range []string{"delete", "null"} {
			var doc map[string]any
			if err := json.Unmarshal([]byte(curriculumtest.SampleJSON), &doc); err != nil {
				t.Fatalf("unmarshal fixture: %v", err)
			}
			mutate(doc, path, mode == "null")
			raw, _ := json.Marshal(doc)

			c, err := Parse(string(raw))
			if err == nil || c != nil {
				t.Fatalf("%s %v: expected failure", mode, path)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("%s %v: expected ValidationError, got %v", mode, path, err)
			}
		}
	}
}

func TestParseIgnoresCaseFoldedDuplicates(t *testing.T) {
	base := strings.TrimSuffix(strings.TrimSpace(curriculumtest.SampleJSON), "}")
	var want model.Curriculum
	if err := json.Unmarshal([]byte(curriculumtest.SampleJSON), &want); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	cases := map[string]string{
		"title override":  base + `, "TITLE": "Injected"}`,
		"modules nulled":  base + `, "MODULES": null}`,
		"module override": strings.Replace(curriculumtest.SampleJSON,
			`"title": "Foundations of Language Models",`,
			`"title": "Foundations of Language Models", "TITLE": "Injected",`, 1),
		"nested override": base + `, "IndustryAlignment": {"keySkills": ["Injected"]}, "economicoptimization": {"efficiencyStrategy": "Injected"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Parse(raw)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(*c, want) {
				t.Fatalf("undeclared key leaked into the curriculum:\n got %+v\nwant %+v", *c, want)
			}
		})
	}
}

func TestParseRejectsWrongTypes(t *testing.T) {
	cases := map[string]string{
		"title number":       `"title": 7`,
		"modules object":     `"modules": {}`,
		"technology integer": `"technologies": [1]`,
	}
	for name, repl := range cases {
		t.Run(name, func(t *testing.T) {
			var doc map[string]any
			_ = json.Unmarshal([]byte(curriculumtest.SampleJSON), &doc)
			var patch map[string]any
			if err := json.Unmarshal([]byte("{"+repl+"}"), &patch); err != nil {
				t.Fatalf("patch: %v", err)
			}
			for k, v := range patch {
				doc[k] = v
			}
			raw, _ := json.Marshal(doc)
			if _, err := Parse(string(raw)); err == nil {
				t.Fatalf("expected failure")
			}
		})
	}
}

func TestValidationErrorPath(t *testing.T) {
	var doc map[string]any
	_ = json.Unmarshal([]byte(curriculumtest.SampleJSON), &doc)
	modules := doc["modules"].([]any)
	delete(modules[1].(map[string]any)["assessment"].(map[string]any), "type")

	err := ResponseSchema().Validate(doc)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err=%v", err)
	}
	if ve.Path != "modules[1].assessment.type" {
		t.Fatalf("path=%q", ve.Path)
	}
}

// requiredPaths lists every required member reachable from s, descending into
// the first element of arrays.
func requiredPaths(s *Schema, prefix []any) [][]any {
	var out [][]any
	switch s.Type {
	case TypeObject:
		for _, name := range s.Required {
			p := append(append([]any(nil), prefix...), name)
			out = append(out, p)
			out = append(out, requiredPaths(s.Property(name), p)...)
		}
	case TypeArray:
		if s.Items != nil && s.Items.Type == TypeObject {
			out = append(out, requiredPaths(s.Items, append(append([]any(nil), prefix...), 0))...)
		}
	}
	return out
}

func mutate(doc map[string]any, path []any, toNull bool) {
	var cur any = doc
	for i, step := range path {
		last := i == len(path)-1
		switch key := step.(type) {
		case string:
			m := cur.(map[string]any)
			if last {
				if toNull {
					m[key] = nil
				} else {
					delete(m, key)
				}
				return
			}
			cur = m[key]
		case int:
			cur = cur.([]any)[key]
		}
	}
}
