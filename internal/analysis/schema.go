package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const levelPattern = `(?i)^\s*(low|medium|high)\s*$`

func levelSchema() map[string]any {
	return map[string]any{"type": "string", "pattern": levelPattern}
}

// outputSchema describes the JSON document the model is asked to return.
// It is used for diagnostics only: the parser shapes whatever it gets.
var outputSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"required": []any{
		"summary", "key_terms", "red_flags", "risk_score", "recommendations",
	},
	"properties": map[string]any{
		"summary": map[string]any{"type": "string"},
		"key_terms": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
		"red_flags": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"clause_text", "risk_type", "severity"},
				"properties": map[string]any{
					"clause_text":           map[string]any{"type": "string"},
					"risk_type":             map[string]any{"type": "string"},
					"explanation":           map[string]any{"type": "string"},
					"why_risky":             map[string]any{"type": "string"},
					"suggested_alternative": map[string]any{"type": "string"},
					"severity":              levelSchema(),
				},
			},
		},
		"risk_score": map[string]any{
			"type":     "object",
			"required": []any{"financial_risk", "legal_exposure", "fairness", "missing_clauses", "overall_score"},
			"properties": map[string]any{
				"financial_risk":  levelSchema(),
				"legal_exposure":  levelSchema(),
				"fairness":        levelSchema(),
				"missing_clauses": levelSchema(),
				"overall_score":   levelSchema(),
			},
		},
		"recommendations": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
}

var compileOutputSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(outputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("contract_analysis.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("contract_analysis.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// OutputSchemaJSON returns the output schema as indented JSON.
func OutputSchemaJSON() []byte {
	b, _ := json.MarshalIndent(outputSchema, "", "  ")
	return b
}

// schemaViolations lists the leaf validation failures for doc as
// "<instance location>: <message>", sorted for stable output.
func schemaViolations(doc any) ([]string, error) {
	schema, err := compileOutputSchema()
	if err != nil {
		return nil, err
	}
	err = schema.Validate(doc)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	var out []string
	collectLeaves(ve, &out)
	sort.Strings(out)
	return out, nil
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.Message))
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}
