package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cliftonc/entente/pkg/contract"
)

// ConvertLocalMockData turns per-operation mock data supplied by test
// code into always-eligible local fixtures. Values may be raw response
// bodies or {status, headers, body} objects.
func (h *Handler) ConvertLocalMockData(mockData map[string]any, service, version string) []*contract.Fixture {
	fixtures := make([]*contract.Fixture, 0, len(mockData))
	for opID, value := range mockData {
		data := contract.FixtureData{Response: responsePayload(value)}
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

// responsePayload normalizes local mock data to the stored response
// shape. A map already carrying status or body keys is taken as-is;
// anything else becomes the body of a 200 response.
func responsePayload(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		_, hasStatus := m["status"]
		_, hasBody := m["body"]
		if hasStatus || hasBody {
			return m
		}
	}
	return map[string]any{"status": float64(200), "body": value}
}

// verbPrefixes are stripped from operation ids when inferring the entity
// a REST operation works on.
var verbPrefixes = []string{"list", "get", "create", "update", "patch", "delete"}

// InferEntityType guesses the entity type from an operation id:
// "listCastles" and "getCastle" both infer "castle". Generated
// "METHOD.path" ids fall back to the last literal path segment. Returns
// "" when no guess is possible.
func (h *Handler) InferEntityType(operationID string) string {
	if operationID == "" {
		return ""
	}

	// Generated ids: METHOD./path/{param}
	if idx := strings.Index(operationID, "./"); idx > 0 {
		return entityFromPath(operationID[idx+1:])
	}

	lower := strings.ToLower(operationID)
	for _, prefix := range verbPrefixes {
		if strings.HasPrefix(lower, prefix) && len(operationID) > len(prefix) {
			return singular(strings.ToLower(operationID[len(prefix):]))
		}
	}
	return ""
}

// entityFromPath infers the entity from the last literal path segment.
func entityFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		return singular(strings.ToLower(seg))
	}
	return ""
}

// singular trims a plural "s"; enough for conventional resource names.
func singular(noun string) string {
	if len(noun) > 1 && strings.HasSuffix(noun, "s") && !strings.HasSuffix(noun, "ss") {
		return strings.TrimSuffix(noun, "s")
	}
	return noun
}

// ExtractEntities pulls identifiable objects out of a fixture's response
// body: the body itself when it carries an id, or each element of a list
// body. Keys shaped like "ownerId" become relationships.
func (h *Handler) ExtractEntities(f *contract.Fixture) *contract.EntityGraph {
	graph := &contract.EntityGraph{}
	if f == nil {
		return graph
	}
	entityType := h.InferEntityType(f.Operation)
	if entityType == "" {
		entityType = "resource"
	}

	switch body := f.ResponseBody().(type) {
	case map[string]any:
		addEntity(graph, entityType, body)
	case []any:
		for _, item := range body {
			if m, ok := item.(map[string]any); ok {
				addEntity(graph, entityType, m)
			}
		}
	}
	return graph
}

func addEntity(graph *contract.EntityGraph, entityType string, data map[string]any) {
	id, ok := data["id"].(string)
	if !ok {
		if n, isNum := data["id"].(float64); isNum {
			id = fmt.Sprintf("%.0f", n)
			ok = true
		}
	}
	if !ok || id == "" {
		return
	}

	graph.Entities = append(graph.Entities, contract.Entity{
		Type: entityType,
		ID:   id,
		Data: data,
	})

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "id" || !strings.HasSuffix(key, "Id") {
			continue
		}
		target, isStr := data[key].(string)
		if !isStr || target == "" {
			continue
		}
		graph.Relationships = append(graph.Relationships, contract.Relationship{
			FromType: entityType,
			FromID:   id,
			ToType:   singular(strings.ToLower(strings.TrimSuffix(key, "Id"))),
			ToID:     target,
			Kind:     "references",
		})
	}
}
