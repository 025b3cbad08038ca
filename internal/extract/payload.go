// Package extract detects and parses the structured data block a model reply
// may carry, either fenced inside prose or as a bare document.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Kind classifies a parse attempt.
type Kind int

const (
	// KindNone means the text carries no structured block at all.
	KindNone Kind = iota
	// KindMalformed means a block was found but is not a usable payload.
	KindMalformed
	// KindValid means a payload with a non-empty symptom list was found.
	KindValid
)

// Result is the typed outcome of Parse.
type Result struct {
	Kind    Kind
	Payload *Payload
	Raw     string // the payload fragment as it appeared in the text
}

// Payload is the structured medical data collected over a conversation.
type Payload struct {
	SymptomStartTime string   `json:"symptomStartTime"`
	Age              *int     `json:"age"`
	Gender           string   `json:"gender"`
	Region           string   `json:"region"`
	Symptoms         []string `json:"symptoms"`
	RiskFactors      []string `json:"risk_factors"`
}

// Demographics are the fields the disease predictor requires.
type Demographics struct {
	Age       int
	Gender    string
	Region    string
	OnsetTime string
}

// ErrMissingField signals a demographic field required for prediction is absent.
var ErrMissingField = errors.New("missing required field")

// Demographics returns the predictor inputs, or ErrMissingField naming the
// first absent one. Missing demographics are an error only on this path;
// payload validity itself needs just the symptom list.
func (p *Payload) Demographics() (Demographics, error) {
	if p.Age == nil {
		return Demographics{}, fmt.Errorf("%w: age", ErrMissingField)
	}
	if p.Gender == "" {
		return Demographics{}, fmt.Errorf("%w: gender", ErrMissingField)
	}
	if p.Region == "" {
		return Demographics{}, fmt.Errorf("%w: region", ErrMissingField)
	}
	if p.SymptomStartTime == "" {
		return Demographics{}, fmt.Errorf("%w: symptomStartTime", ErrMissingField)
	}
	return Demographics{
		Age:       *p.Age,
		Gender:    p.Gender,
		Region:    p.Region,
		OnsetTime: p.SymptomStartTime,
	}, nil
}

var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

const payloadSchema = `{
	"type": "object",
	"required": ["symptoms"],
	"properties": {
		"symptoms": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"risk_factors": {"type": "array", "items": {"type": "string"}},
		"age": {"type": ["integer", "null"]},
		"gender": {"type": ["string", "null"]},
		"region": {"type": ["string", "null"]},
		"symptomStartTime": {"type": ["string", "null"]}
	}
}`

var schema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(payloadSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid payload schema: %v", err))
	}
	return s
}

// Parse looks for a structured block: first a fenced block containing a brace
// document, then the whole trimmed text if it starts with a brace or bracket.
func Parse(text string) Result {
	raw, ok := payloadFragment(text)
	if !ok {
		return Result{Kind: KindNone}
	}

	res, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil || !res.Valid() {
		return Result{Kind: KindMalformed, Raw: raw}
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Result{Kind: KindMalformed, Raw: raw}
	}
	return Result{Kind: KindValid, Payload: &p, Raw: raw}
}

// Strip returns the human-readable remainder with the payload block removed.
// Text carrying no payload is returned unchanged.
func Strip(text string) string {
	if loc := fenceRE.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return ""
	}
	return text
}

func payloadFragment(text string) (string, bool) {
	if m := fenceRE.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed, true
	}
	return "", false
}
