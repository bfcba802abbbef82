package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"github.com/cliftonc/entente/pkg/contract"
)

// eventFrame is the JSON message the WebSocket adapter speaks: clients
// send a channel (or rely on the upgrade path), an optional event type,
// and a payload; the server answers with the routed event envelope.
type eventFrame struct {
	Channel   string `json:"channel,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// handleWebSocket upgrades the connection and answers each incoming
// frame with the routed mock event. Non-matching frames get an error
// frame; the connection stays open until the client closes it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Path-addressed channel: frames that never name a channel route as
	// the upgrade request itself. Canonicalized before Accept hijacks
	// the connection.
	upgrade := s.canonicalize(w, r)

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true, // any origin may talk to a mock
		CompressionMode:    ws.CompressionDisabled,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(ws.StatusInternalError, "closing")
	conn.SetReadLimit(s.cfg.MaxBodyBytes)

	for {
		kind, raw, err := conn.Read(r.Context())
		if err != nil {
			// Client went away or closed; normal end of session.
			return
		}
		if kind != ws.MessageText {
			continue
		}

		var frame eventFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.writeFrame(r.Context(), conn, map[string]any{"error": "malformed event frame"})
			continue
		}

		var req *contract.Request
		if frame.Channel != "" {
			req = contract.NewEventRequest(frame.Channel, frame.EventType, frame.Data)
		} else {
			req = upgrade
		}

		out := s.router.Route(req)
		s.record(req, out)

		if !out.Matched {
			s.writeFrame(r.Context(), conn, map[string]any{"error": "no matching operation"})
			continue
		}
		s.writeFrame(r.Context(), conn, out.Response.Body)
	}
}

func (s *Server) writeFrame(ctx context.Context, conn *ws.Conn, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		s.log.Warn("encode websocket frame", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Write(writeCtx, ws.MessageText, raw); err != nil {
		s.log.Warn("write websocket frame", "error", err)
	}
}
