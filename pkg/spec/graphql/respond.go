package graphql

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/fixture"
)

// GenerateResponse replays the selected fixture or synthesizes a
// plausible GraphQL response shaped by the field name's verb prefix,
// always wrapped under {"data": {fieldName: ...}}.
func (h *Handler) GenerateResponse(op *contract.Operation, fixtures []*contract.Fixture, req *contract.Request, cand *contract.MatchCandidate, selected *contract.Fixture) *contract.Response {
	field := fieldName(op.ID)

	if selected == nil {
		pool := fixture.Filter(fixtures, op.ID, h.Format())
		if len(pool) > 0 {
			scores := h.FixtureScorer().ScoreFixtures(pool, req, op, cand)
			selected, _ = fixture.Select(pool, scores)
		}
	}

	if selected != nil {
		return contract.JSONResponse(http.StatusOK, wrapData(field, selected.ResponseBody()))
	}

	if op.ID == introspectionID {
		return contract.JSONResponse(http.StatusOK, map[string]any{
			"data": map[string]any{"__schema": map[string]any{"types": []any{}}},
		})
	}

	return contract.JSONResponse(http.StatusOK, wrapData(field, synthesizeField(field, cand)))
}

// wrapData wraps a value under {"data": {field: value}}. Bodies already
// carrying a data envelope pass through unchanged.
func wrapData(field string, value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		if _, hasData := m["data"]; hasData {
			return m
		}
	}
	return map[string]any{"data": map[string]any{field: value}}
}

// synthesizeField fabricates a field value mirroring verb-like prefixes:
// list fields return arrays, create/update fields echo the variables,
// delete fields report success, everything else returns one object.
func synthesizeField(field string, cand *contract.MatchCandidate) any {
	var variables map[string]any
	if cand != nil {
		variables, _ = cand.Parameters["variables"].(map[string]any)
	}

	lower := strings.ToLower(field)
	switch {
	case strings.HasPrefix(lower, "list"):
		return []any{mockObject(field, variables)}
	case strings.HasPrefix(lower, "create"):
		obj := mockObject(field, variables)
		obj["id"] = uuid.NewString()
		return obj
	case strings.HasPrefix(lower, "update"):
		obj := mockObject(field, variables)
		obj["updated"] = true
		return obj
	case strings.HasPrefix(lower, "delete"):
		return map[string]any{"success": true}
	default: // get and plain lookups
		return mockObject(field, variables)
	}
}

// mockObject builds a plausible object for a field, echoing the request
// variables as properties.
func mockObject(field string, variables map[string]any) map[string]any {
	obj := map[string]any{
		"id":   "1",
		"name": fmt.Sprintf("Mock %s", capitalize(field)),
	}
	for k, v := range variables {
		obj[k] = v
	}
	return obj
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
