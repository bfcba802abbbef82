package openapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/spec"
)

// ValidateResponse compares an actual response against the expected one
// for the operation. Status codes must agree; bodies are compared through
// the canonical hash, so volatile fields (timestamps, transport-noise
// headers) never fail validation. When the operation declares a response
// schema, the actual body is additionally validated against it.
func (h *Handler) ValidateResponse(op *contract.Operation, expected, actual *contract.Response) *spec.ValidationResult {
	result := &spec.ValidationResult{Valid: true}
	if actual == nil {
		result.Valid = false
		result.Errors = append(result.Errors, "no actual response to validate")
		return result
	}

	if expected != nil {
		if expected.Status != actual.Status {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("status %d, want %d", actual.Status, expected.Status))
		}
		wantHash, err1 := contract.HashFields(map[string]any{"body": expected.Body})
		gotHash, err2 := contract.HashFields(map[string]any{"body": actual.Body})
		if err1 == nil && err2 == nil && wantHash != gotHash {
			result.Valid = false
			result.Errors = append(result.Errors, "body differs from expected response")
		}
	}

	if op != nil && op.ResponseSchema != nil && actual.Body != nil {
		if err := validateAgainstSchema(op.ResponseSchema, actual.Body); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("schema validation: %v", err))
		}
	}

	return result
}

// validateAgainstSchema compiles the operation's schema ref and checks
// the body against it.
func validateAgainstSchema(schemaRef any, body any) error {
	raw, err := json.Marshal(schemaRef)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("response.json", strings.NewReader(string(raw))); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	compiled, err := compiler.Compile("response.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	// jsonschema validates decoded JSON values; round-trip the body so
	// typed values (ints, structs) become their JSON shapes.
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}

	return compiled.Validate(decoded)
}
