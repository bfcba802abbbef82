package asyncapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/spec"
)

// ValidateResponse compares an actual event against the expected one.
// Event ids and timestamps are fresh per delivery, so the comparison
// runs on the canonical hash, which already strips volatile fields.
func (h *Handler) ValidateResponse(op *contract.Operation, expected, actual *contract.Response) *spec.ValidationResult {
	result := &spec.ValidationResult{Valid: true}
	if actual == nil {
		result.Valid = false
		result.Errors = append(result.Errors, "no actual event to validate")
		return result
	}

	body, ok := actual.Body.(map[string]any)
	if !ok {
		result.Valid = false
		result.Errors = append(result.Errors, "event body is not an envelope object")
		return result
	}
	if _, hasData := body["data"]; !hasData {
		result.Warnings = append(result.Warnings, "event envelope carries no data field")
	}
	if et, _ := body["eventType"].(string); et == "" {
		result.Warnings = append(result.Warnings, "event envelope carries no eventType")
	}

	if expected != nil {
		wantHash, err1 := contract.HashFields(map[string]any{"body": expected.Body})
		gotHash, err2 := contract.HashFields(map[string]any{"body": actual.Body})
		if err1 == nil && err2 == nil && wantHash != gotHash {
			result.Valid = false
			result.Errors = append(result.Errors, "event payload differs from expected")
		}
	}

	return result
}

// ConvertLocalMockData turns per-channel mock data into local fixtures.
// Keys may be full operation ids ("publish.castles/{id}/events") or bare
// channel names, which default to the publish direction.
func (h *Handler) ConvertLocalMockData(mockData map[string]any, service, version string) []*contract.Fixture {
	fixtures := make([]*contract.Fixture, 0, len(mockData))
	for key, value := range mockData {
		opID := key
		if !strings.HasPrefix(opID, "publish.") && !strings.HasPrefix(opID, "subscribe.") {
			opID = "publish." + opID
		}
		data := contract.FixtureData{Response: eventPayload(value)}
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

// eventPayload normalizes local mock data to the stored event response
// shape. A map already carrying status or body keys is taken as-is;
// anything else becomes the body of a 200 event delivery.
func eventPayload(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		_, hasStatus := m["status"]
		_, hasBody := m["body"]
		if hasStatus || hasBody {
			return m
		}
	}
	return map[string]any{"status": float64(200), "body": value}
}

// eventSuffixes are trimmed from declared operation ids when inferring
// the entity an event concerns.
var eventSuffixes = []string{"created", "updated", "deleted", "changed", "event", "events"}

// InferEntityType guesses the entity a channel's events concern.
// Generated "direction.channel" ids use the last literal, non-marker
// channel segment; declared ids like "castleCreated" drop the event
// suffix. Returns "" when no guess is possible.
func (h *Handler) InferEntityType(operationID string) string {
	if operationID == "" {
		return ""
	}

	for _, direction := range []string{"publish.", "subscribe."} {
		if strings.HasPrefix(operationID, direction) {
			return entityFromChannel(operationID[len(direction):])
		}
	}

	lower := strings.ToLower(strings.TrimPrefix(operationID, "on"))
	for _, suffix := range eventSuffixes {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			return singular(strings.TrimSuffix(lower, suffix))
		}
	}
	return ""
}

// entityFromChannel infers the entity from the last literal channel
// segment, skipping parameters and transport markers.
func entityFromChannel(channel string) string {
	segments := strings.Split(strings.Trim(channel, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := strings.ToLower(segments[i])
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		if _, isMarker := asyncPathMarkers[seg]; isMarker {
			continue
		}
		return singular(seg)
	}
	return ""
}

// singular trims a plural "s"; enough for conventional channel names.
func singular(noun string) string {
	if len(noun) > 1 && strings.HasSuffix(noun, "s") && !strings.HasSuffix(noun, "ss") {
		return strings.TrimSuffix(noun, "s")
	}
	return noun
}

// ExtractEntities pulls identifiable objects out of a fixture's event
// envelope: the data payload when it carries an id, or each element of a
// list payload.
func (h *Handler) ExtractEntities(f *contract.Fixture) *contract.EntityGraph {
	graph := &contract.EntityGraph{}
	if f == nil {
		return graph
	}

	body, ok := f.ResponseBody().(map[string]any)
	if !ok {
		return graph
	}
	payload, ok := body["data"]
	if !ok {
		// Bare payloads stored without an envelope still count.
		payload = body
	}

	entityType := h.InferEntityType(f.Operation)
	if entityType == "" {
		entityType = "resource"
	}

	switch v := payload.(type) {
	case map[string]any:
		appendEntity(graph, entityType, v)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				appendEntity(graph, entityType, m)
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
