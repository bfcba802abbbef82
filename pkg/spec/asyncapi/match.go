package asyncapi

import (
	"fmt"
	"strings"

	"github.com/cliftonc/entente/internal/matching"
	"github.com/cliftonc/entente/pkg/contract"
)

// asyncPathMarkers are path segments that flag an HTTP request as
// event-oriented.
var asyncPathMarkers = map[string]struct{}{
	"ws":     {},
	"events": {},
	"stream": {},
	"sse":    {},
}

// MatchOperation classifies a request against the channel operations.
// Two request shapes are accepted: explicit event requests carrying a
// channel (and optional event type), and HTTP-style async requests
// recognized by WebSocket upgrade headers, an SSE Accept header, or a
// path containing /ws, /events, /stream, or /sse. Channel templates
// match with the same algorithm as REST paths; an exact channel match
// outranks a pattern match.
func (h *Handler) MatchOperation(req *contract.Request, ops []contract.Operation) []contract.MatchCandidate {
	if req == nil {
		return nil
	}

	var channels []string
	switch {
	case req.Channel != "":
		channels = []string{req.Channel}
	case isHTTPAsyncRequest(req):
		channels = channelCandidates(req.Path)
	default:
		return nil
	}

	var candidates []contract.MatchCandidate
	for i := range ops {
		op := &ops[i]
		if op.Kind != contract.KindEvent {
			continue
		}

		best := matching.Result{}
		for _, channel := range channels {
			if r := matching.MatchTemplate(op.Channel, channel); r.Score > best.Score {
				best = r
			}
		}
		if !best.Matched() {
			continue
		}

		reasons := []string{fmt.Sprintf("channel %s matched", op.Channel)}
		if best.Score == matching.ScoreExact {
			reasons = append(reasons, "exact channel match")
		} else {
			reasons = append(reasons, fmt.Sprintf("channel template matched with %d parameter(s)", len(best.Params)))
		}

		params := make(map[string]any, len(best.Params)+1)
		for k, v := range best.Params {
			params[k] = v
		}
		if req.EventType != "" {
			params["eventType"] = req.EventType
		}

		candidates = append(candidates, contract.MatchCandidate{
			Operation:  op,
			Confidence: best.Score,
			Reasons:    reasons,
			Metrics:    map[string]float64{"channelScore": best.Score},
			Parameters: params,
		})
	}

	contract.SortCandidates(candidates)
	return candidates
}

// isHTTPAsyncRequest recognizes HTTP requests that address event
// operations rather than REST ones.
func isHTTPAsyncRequest(req *contract.Request) bool {
	if strings.EqualFold(req.Header("upgrade"), "websocket") {
		return true
	}
	if strings.Contains(strings.ToLower(req.Header("accept")), "text/event-stream") {
		return true
	}
	for _, seg := range strings.Split(strings.Trim(req.Path, "/"), "/") {
		if _, ok := asyncPathMarkers[strings.ToLower(seg)]; ok {
			return true
		}
	}
	return false
}

// channelCandidates derives the channel strings to try from an HTTP
// path: the trimmed path itself plus variants with leading and trailing
// marker segments removed, so "/events/castles/3" can address channel
// "castles/3" and "/castles/3/events" can address "castles/3/events" or
// "castles/3".
func channelCandidates(path string) []string {
	trimmed := strings.Trim(path, "/")
	out := []string{trimmed}

	segments := strings.Split(trimmed, "/")
	if len(segments) > 1 {
		if _, ok := asyncPathMarkers[strings.ToLower(segments[0])]; ok {
			out = append(out, strings.Join(segments[1:], "/"))
		}
		if _, ok := asyncPathMarkers[strings.ToLower(segments[len(segments)-1])]; ok {
			out = append(out, strings.Join(segments[:len(segments)-1], "/"))
		}
	}
	return out
}
