package graphql

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/spec"
)

// ValidateResponse compares an actual GraphQL response against the
// expected one. GraphQL responses are always 200; validation concerns
// the data envelope and reported errors.
func (h *Handler) ValidateResponse(op *contract.Operation, expected, actual *contract.Response) *spec.ValidationResult {
	result := &spec.ValidationResult{Valid: true}
	if actual == nil {
		result.Valid = false
		result.Errors = append(result.Errors, "no actual response to validate")
		return result
	}

	body, ok := actual.Body.(map[string]any)
	if !ok {
		result.Valid = false
		result.Errors = append(result.Errors, "response body is not a GraphQL envelope")
		return result
	}
	if errs, present := body["errors"].([]any); present && len(errs) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("response carries %d GraphQL error(s)", len(errs)))
	}
	if _, hasData := body["data"]; !hasData {
		result.Valid = false
		result.Errors = append(result.Errors, "response carries no data field")
	}

	if expected != nil {
		wantHash, err1 := contract.HashFields(map[string]any{"body": expected.Body})
		gotHash, err2 := contract.HashFields(map[string]any{"body": actual.Body})
		if err1 == nil && err2 == nil && wantHash != gotHash {
			result.Valid = false
			result.Errors = append(result.Errors, "data differs from expected response")
		}
	}

	return result
}

// ConvertLocalMockData turns per-operation mock data into local
// fixtures. Keys may be full operation ids ("Query.listCastles") or bare
// field names, which default to the Query root.
func (h *Handler) ConvertLocalMockData(mockData map[string]any, service, version string) []*contract.Fixture {
	fixtures := make([]*contract.Fixture, 0, len(mockData))
	for key, value := range mockData {
		opID := key
		if !strings.Contains(opID, ".") {
			opID = "Query." + opID
		}
		data := contract.FixtureData{
			Response: map[string]any{
				"status": float64(http.StatusOK),
				"body":   value,
			},
		}
		f := &contract.Fixture{
			ID:        fmt.Sprintf("local_%s_%s", service, opID),
			Service:   service,
			Operation: opID,
			SpecType:  h.Format(),
			Status:    contract.FixtureApproved,
			Source:    contract.SourceManual,
			Priority:  1,
			Local:     true,
			Data:      data,
			CreatedFrom: contract.Provenance{
				Type: "local",
			},
		}
		if hash, err := contract.FixtureHash(service, opID, h.Format(), data); err == nil {
			f.Hash = hash
		}
		fixtures = append(fixtures, f)
	}
	return fixtures
}

// InferEntityType strips the root type and any verb prefix from the
// field name: "Query.listCastles" and "Mutation.createCastle" both infer
// "castle". Returns "" when nothing sensible remains.
func (h *Handler) InferEntityType(operationID string) string {
	field := fieldName(operationID)
	if field == "" || isIntrospectionField(field) {
		return ""
	}

	lower := strings.ToLower(field)
	for _, prefix := range []string{"list", "get", "create", "update", "delete"} {
		if strings.HasPrefix(lower, prefix) && len(field) > len(prefix) {
			return singular(strings.ToLower(field[len(prefix):]))
		}
	}
	return singular(lower)
}

func singular(noun string) string {
	if len(noun) > 1 && strings.HasSuffix(noun, "s") && !strings.HasSuffix(noun, "ss") {
		return strings.TrimSuffix(noun, "s")
	}
	return noun
}

// ExtractEntities walks the fixture's data envelope and collects
// identifiable objects per selected field.
func (h *Handler) ExtractEntities(f *contract.Fixture) *contract.EntityGraph {
	graph := &contract.EntityGraph{}
	if f == nil {
		return graph
	}

	body, ok := f.ResponseBody().(map[string]any)
	if !ok {
		return graph
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		// Bare payloads stored without an envelope still count.
		data = map[string]any{fieldName(f.Operation): body}
	}

	entityType := h.InferEntityType(f.Operation)
	if entityType == "" {
		entityType = "resource"
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := data[key].(type) {
		case map[string]any:
			appendEntity(graph, entityType, v)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					appendEntity(graph, entityType, m)
				}
			}
		}
	}
	return graph
}

func appendEntity(graph *contract.EntityGraph, entityType string, data map[string]any) {
	id, _ := data["id"].(string)
	if id == "" {
		return
	}
	graph.Entities = append(graph.Entities, contract.Entity{
		Type: entityType,
		ID:   id,
		Data: data,
	})
}
