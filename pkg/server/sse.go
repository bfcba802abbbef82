package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliftonc/entente/pkg/contract"
)

// formatEvent renders one SSE event in W3C wire format: optional event
// and id fields, one data: line per payload line, blank line to
// dispatch.
// See: https://html.spec.whatwg.org/multipage/server-sent-events.html
func formatEvent(eventType, id string, data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if eventType != "" && !strings.ContainsAny(eventType, "\r\n") {
		sb.WriteString("event: ")
		sb.WriteString(eventType)
		sb.WriteByte('\n')
	}
	if id != "" && !strings.ContainsAny(id, "\r\n") {
		sb.WriteString("id: ")
		sb.WriteString(id)
		sb.WriteByte('\n')
	}
	for _, line := range strings.Split(string(raw), "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String(), nil
}

// handleSSE answers a text/event-stream request with one routed event.
// Non-matches close the stream with 404 before any event is written.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	req := s.canonicalize(w, r)
	out := s.router.Route(req)
	s.record(req, out)

	if !out.Matched {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "no matching operation",
			"path":  r.URL.Path,
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	resp := out.Response
	eventType := sseEventType(req, resp)
	frame, err := formatEvent(eventType, resp.EventID, resp.Body)
	if err != nil {
		s.log.Warn("encode sse event", "error", err)
		return
	}
	if _, err := w.Write([]byte(frame)); err != nil {
		s.log.Warn("write sse event", "error", err)
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// sseEventType picks the wire event type: the synthesized envelope's
// eventType when present, else the request's hint.
func sseEventType(req *contract.Request, resp *contract.Response) string {
	if body, ok := resp.Body.(map[string]any); ok {
		if et, ok := body["eventType"].(string); ok && et != "" {
			return et
		}
	}
	return req.EventType
}
