package agents

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spboyer/crucible/internal/scoring"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrContractViolation is returned when synthesizer output does not satisfy
// the synthesis contract.
var ErrContractViolation = errors.New("synthesis output violates the contract")

//go:embed synthesis.schema.json
var synthesisSchemaJSON string

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

var synthesisSchema = mustCompileSchema(synthesisSchemaJSON, "synthesis.schema.json")

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// CriterionAssessment is the synthesizer's verdict on one criterion.
type CriterionAssessment struct {
	Score     float64  `mapstructure:"score" json:"score"`
	Rationale string   `mapstructure:"rationale" json:"rationale,omitempty"`
	Evidence  []string `mapstructure:"evidence" json:"evidence,omitempty"`
}

// Synthesis is the decoded synthesizer output.
type Synthesis struct {
	Summary    string                         `mapstructure:"summary" json:"summary"`
	Scores     map[string]CriterionAssessment `mapstructure:"scores" json:"scores"`
	Strengths  []string                       `mapstructure:"strengths" json:"strengths,omitempty"`
	Weaknesses []string                       `mapstructure:"weaknesses" json:"weaknesses,omitempty"`
}

// RawScores returns the criterion scores for the scoring engine.
func (s *Synthesis) RawScores() map[string]float64 {
	raw := make(map[string]float64, len(s.Scores))
	for name, a := range s.Scores {
		raw[name] = a.Score
	}
	return raw
}

// Notes returns per-criterion rationale and evidence for the scoring engine.
func (s *Synthesis) Notes() scoring.Notes {
	notes := scoring.Notes{
		Rationale: make(map[string]string, len(s.Scores)),
		Evidence:  make(map[string][]string, len(s.Scores)),
	}
	for name, a := range s.Scores {
		notes.Rationale[name] = a.Rationale
		notes.Evidence[name] = a.Evidence
	}
	return notes
}

// NeutralSynthesis is substituted when the contract is violated. Its empty
// score map makes the scoring engine fall back to neutral defaults.
func NeutralSynthesis(reason string) *Synthesis {
	return &Synthesis{
		Summary: "Assessment unavailable: " + reason,
		Scores:  map[string]CriterionAssessment{},
	}
}

// ParseSynthesis validates text against the synthesis schema and decodes it.
// Markdown code fences and prose around the JSON object are tolerated.
// Violations wrap ErrContractViolation and list every schema error.
func ParseSynthesis(text string) (*Synthesis, error) {
	body, ok := extractJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrContractViolation)
	}

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContractViolation, err)
	}

	if errs := validateAgainstSchema(synthesisSchema, doc); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrContractViolation, strings.Join(errs, "; "))
	}

	var out Synthesis
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.DecodeHookFuncType(numberToAssessmentHook),
		Result:     &out,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	return &out, nil
}

// numberToAssessmentHook accepts a bare number where an assessment object is
// expected, so {"logic": 7} decodes like {"logic": {"score": 7}}.
func numberToAssessmentHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(CriterionAssessment{}) {
		return data, nil
	}
	if n, ok := data.(float64); ok {
		return map[string]any{"score": n}, nil
	}
	return data, nil
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// extractJSONObject returns the outermost {...} span of text.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
