package asyncapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/fixture"
)

// GenerateResponse replays the selected fixture or fabricates an event
// envelope whose payload shape follows keyword heuristics in the channel
// and event type.
func (h *Handler) GenerateResponse(op *contract.Operation, fixtures []*contract.Fixture, req *contract.Request, cand *contract.MatchCandidate, selected *contract.Fixture) *contract.Response {
	if selected == nil {
		pool := fixture.Filter(fixtures, op.ID, h.Format())
		if len(pool) > 0 {
			scores := fixture.NewScorer(h.Format()).ScoreFixtures(pool, req, op, cand)
			selected, _ = fixture.Select(pool, scores)
		}
	}

	if selected != nil {
		resp := &contract.Response{
			Status:  selected.ResponseStatus(http.StatusOK),
			Success: true,
			Headers: selected.ResponseHeaders(),
			Body:    selected.ResponseBody(),
		}
		if body, ok := selected.ResponseBody().(map[string]any); ok {
			if id, ok := body["eventId"].(string); ok {
				resp.EventID = id
			}
			if ts, ok := body["timestamp"].(string); ok {
				resp.Timestamp = ts
			}
		}
		return resp
	}

	return synthesizeEvent(op, req, cand)
}

// synthesizeEvent fabricates a mock event envelope: eventId, timestamp,
// eventType, and a data payload shaped by created/deleted/status
// keywords in the channel or event type.
func synthesizeEvent(op *contract.Operation, req *contract.Request, cand *contract.MatchCandidate) *contract.Response {
	eventID := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339)

	eventType := req.EventType
	if eventType == "" {
		eventType = eventTypeFromChannel(op.Channel)
	}

	data := map[string]any{"id": eventID}
	if cand != nil {
		for k, v := range cand.Parameters {
			if k == "eventType" {
				continue
			}
			data[k] = v
		}
	}

	keywords := strings.ToLower(op.Channel + " " + eventType)
	switch {
	case strings.Contains(keywords, "created"):
		data["name"] = "Mock Resource"
	case strings.Contains(keywords, "deleted"):
		data["deleted"] = true
	case strings.Contains(keywords, "status"):
		data["status"] = "active"
	default:
		data["message"] = "mock event"
	}

	return &contract.Response{
		Status:    http.StatusOK,
		Success:   true,
		Headers:   map[string]string{"content-type": "application/json"},
		EventID:   eventID,
		Timestamp: timestamp,
		Body: map[string]any{
			"eventId":   eventID,
			"timestamp": timestamp,
			"eventType": eventType,
			"data":      data,
		},
	}
}

// eventTypeFromChannel derives a dotted event type from a channel
// template: "castles/{id}/events" becomes "castles.events".
func eventTypeFromChannel(channel string) string {
	var literals []string
	for _, seg := range strings.Split(strings.Trim(channel, "/"), "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		literals = append(literals, strings.ToLower(seg))
	}
	return strings.Join(literals, ".")
}
