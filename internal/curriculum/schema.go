package curriculum

import (
	"fmt"
	"strconv"
)

// Type is a JSON value type understood by the response schema.
type Type string

const (
	TypeObject Type = "OBJECT"
	TypeArray  Type = "ARRAY"
	TypeString Type = "STRING"
)

// Property is a named member of an object schema. Properties keep their
// declaration order so the model sees fields in document order.
type Property struct {
	Name   string
	Schema *Schema
}

// Schema is a declarative description of the JSON shape the model must return.
// The same value is sent with the request and used to validate the response.
type Schema struct {
	Type        Type
	Description string
	Properties  []Property
	Items       *Schema
	Required    []string
}

// Property returns the schema of the named member, or nil.
func (s *Schema) Property(name string) *Schema {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

// PropertyNames returns member names in declaration order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		names = append(names, p.Name)
	}
	return names
}

// ValidationError reports the first place a decoded document departs from a schema.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "response: " + e.Reason
	}
	return e.Path + ": " + e.Reason
}

// Validate checks a value produced by encoding/json against the schema.
// Required members must be present and non-null; present members must have
// the declared type.
func (s *Schema) Validate(v any) error {
	return s.validate("", v)
}

func (s *Schema) validate(path string, v any) error {
	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return &ValidationError{Path: path, Reason: "expected object, got " + kindOf(v)}
		}
		for _, name := range s.Required {
			if val, ok := obj[name]; !ok || val == nil {
				return &ValidationError{Path: joinPath(path, name), Reason: "required field missing"}
			}
		}
		for _, p := range s.Properties {
			val, ok := obj[p.Name]
			if !ok || val == nil {
				continue
			}
			if err := p.Schema.validate(joinPath(path, p.Name), val); err != nil {
				return err
			}
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return &ValidationError{Path: path, Reason: "expected array, got " + kindOf(v)}
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range arr {
			if err := s.Items.validate(path+"["+strconv.Itoa(i)+"]", item); err != nil {
				return err
			}
		}
	case TypeString:
		if _, ok := v.(string); !ok {
			return &ValidationError{Path: path, Reason: "expected string, got " + kindOf(v)}
		}
	default:
		return fmt.Errorf("schema: unsupported type %q", s.Type)
	}
	return nil
}

// Prune returns a copy of v holding only the members the schema declares,
// matched by exact name. Decoding the pruned value into a struct cannot pick
// up undeclared keys through case-insensitive field matching.
func (s *Schema) Prune(v any) any {
	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(s.Properties))
		for _, p := range s.Properties {
			if val, ok := obj[p.Name]; ok {
				out[p.Name] = p.Schema.Prune(val)
			}
		}
		return out
	case TypeArray:
		arr, ok := v.([]any)
		if !ok || s.Items == nil {
			return v
		}
		out := make([]any, len(arr))
		for i, item := range arr {
			out[i] = s.Items.Prune(item)
		}
		return out
	default:
		return v
	}
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ─── Curriculum response schema ────────────────────────────────────────────

func str(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

func strList(description string) *Schema {
	return &Schema{Type: TypeArray, Items: str(""), Description: description}
}

// object declares an object whose members are all required.
func object(description string, props ...Property) *Schema {
	s := &Schema{Type: TypeObject, Description: description, Properties: props}
	s.Required = s.PropertyNames()
	return s
}

func prop(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

var responseSchema = object("",
	prop("title", str("Formal title of the course or program")),
	prop("level", str("Academic level (e.g., Undergraduate, Professional Cert)")),
	prop("overview", str("A high-level summary of the program")),
	prop("targetAudience", str("Who this course is designed for")),
	prop("learningOutcomes", strList("Broad outcomes students will achieve by the end")),
	prop("modules", &Schema{
		Type: TypeArray,
		Items: object("",
			prop("id", str("")),
			prop("title", str("")),
			prop("duration", str("Timeframe for this module (e.g., Week 1-2)")),
			prop("description", str("")),
			prop("learningObjectives", strList("")),
			prop("topics", strList("")),
			prop("assessment", object("",
				prop("type", str("")),
				prop("description", str("")),
			)),
		),
	}),
	prop("industryAlignment", object("",
		prop("keySkills", strList("")),
		prop("jobRoles", strList("")),
		prop("marketRelevance", str("")),
	)),
	prop("economicOptimization", object("",
		prop("efficiencyStrategy", str("How this curriculum maximizes learning ROI")),
		prop("estimatedMarketValue", str("Value proposition for students/employers")),
		prop("resourceRecommendations", strList("Low-cost or high-impact resource suggestions")),
	)),
	prop("technologies", strList("Recommended tech stack (e.g. Python, FastAPI, Hugging Face, GenAI)")),
)

// ResponseSchema returns the Curriculum schema. The returned value is shared
// and must not be modified.
func ResponseSchema() *Schema {
	return responseSchema
}
