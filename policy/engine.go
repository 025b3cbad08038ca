// Package policy evaluates the triage policy attached to diagnosis outcomes.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Actions the triage policy can return.
const (
	ActionNone            = "none"
	ActionRecommendDoctor = "recommend_doctor"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.triage.action"),
		rego.Module("triage.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the triage policy. Input is a map with keys such as kind
// ("kb_match", "prediction") and max_severity. Returns the action string.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default; an empty result means it was removed.
		return ActionNone, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return ActionNone, nil
}

// DefaultPolicy is the default triage policy: a strict knowledge-base hit on
// a high-severity disease carries a doctor recommendation.
const DefaultPolicy = `
package triage

default action = "none"

action = "recommend_doctor" {
	input.kind == "kb_match"
	input.max_severity == "high"
}
`
