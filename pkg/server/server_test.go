package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/recorder"
	"github.com/cliftonc/entente/pkg/router"
	"github.com/cliftonc/entente/pkg/spec"
	"github.com/cliftonc/entente/pkg/spec/asyncapi"
	"github.com/cliftonc/entente/pkg/spec/graphql"
	"github.com/cliftonc/entente/pkg/spec/openapi"
)

const castleAPI = `{
  "openapi": "3.0.0",
  "info": {"title": "Castle Service", "version": "1.0.0"},
  "paths": {
    "/castles": {
      "get": {"operationId": "listCastles", "responses": {"200": {"description": "ok"}}},
      "post": {"operationId": "createCastle", "responses": {"201": {"description": "created"}}}
    }
  }
}`

const castleEvents = `asyncapi: 2.6.0
info:
  title: Castle Events
  version: 1.0.0
channels:
  castles/created:
    publish:
      operationId: castleCreated
  castles/{castleId}/status:
    subscribe: {}
`

func newRouter(t *testing.T, rawSpec string) *router.Router {
	t.Helper()
	registry, err := spec.NewRegistry(openapi.New(), graphql.New(), asyncapi.New())
	require.NoError(t, err)
	rt := router.New(registry, nil)
	require.NoError(t, rt.LoadSpec([]byte(rawSpec)))
	return rt
}

func castleFixture() *contract.Fixture {
	return &contract.Fixture{
		ID:        "fx_list",
		Operation: "listCastles",
		SpecType:  contract.SpecTypeOpenAPI,
		Status:    contract.FixtureApproved,
		Source:    contract.SourceProvider,
		Data: contract.FixtureData{
			Response: map[string]any{
				"status":  float64(200),
				"headers": map[string]any{"content-type": "application/json"},
				"body":    []any{map[string]any{"id": "1", "name": "Château A"}},
			},
		},
	}
}

type sinkSpy struct {
	mu           sync.Mutex
	interactions []recorder.Interaction
}

func (s *sinkSpy) RecordInteraction(in recorder.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = append(s.interactions, in)
}

func (s *sinkSpy) all() []recorder.Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recorder.Interaction, len(s.interactions))
	copy(out, s.interactions)
	return out
}

func TestServer_HTTP(t *testing.T) {
	rt := newRouter(t, castleAPI)
	rt.SetFixtures([]*contract.Fixture{castleFixture()})
	srv := New(Config{Service: "castles"}, rt)

	t.Run("replays fixture", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("GET", "/castles", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, "Château A", body[0]["name"])
	})

	t.Run("synthesizes create", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/castles", strings.NewReader(`{"name": "Château B"}`))
		req.Header.Set("Content-Type", "application/json")
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Château B", body["name"])
		assert.NotEmpty(t, body["id"])
	})

	t.Run("no match is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("GET", "/dragons", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "no matching operation", body["error"])
	})
}

func TestServer_RecordsInteractions(t *testing.T) {
	rt := newRouter(t, castleAPI)
	rt.SetFixtures([]*contract.Fixture{castleFixture()})
	sink := &sinkSpy{}
	srv := New(Config{Service: "castles", Consumer: "web", Version: "1.2.0"}, rt, WithRecorder(sink))

	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/castles", nil))
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/dragons", nil))

	got := sink.all()
	require.Len(t, got, 2)
	assert.True(t, got[0].Matched)
	assert.Equal(t, "listCastles", got[0].Operation)
	assert.Equal(t, "web", got[0].Consumer)
	assert.False(t, got[1].Matched)
	assert.Empty(t, got[1].Operation)
}

func TestServer_SSE(t *testing.T) {
	rt := newRouter(t, castleEvents)
	srv := New(Config{Service: "castle-events"}, rt)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/castles/42/status", nil)
	req.Header.Set("Accept", "text/event-stream")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	wire := rec.Body.String()
	assert.Contains(t, wire, "event: castles.status\n")
	assert.Contains(t, wire, "id: ")
	assert.Contains(t, wire, "data: {")
	assert.True(t, strings.HasSuffix(wire, "\n\n"), "event must end with a blank line")
}

func TestServer_SSENoMatch(t *testing.T) {
	rt := newRouter(t, castleEvents)
	srv := New(Config{}, rt)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/dragons/stream/unknown-depth/too/deep", nil)
	req.Header.Set("Accept", "text/event-stream")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormatEvent(t *testing.T) {
	frame, err := formatEvent("castle.created", "evt-1", map[string]any{"id": "7"})
	require.NoError(t, err)
	assert.Equal(t, "event: castle.created\nid: evt-1\ndata: {\"id\":\"7\"}\n\n", frame)

	bare, err := formatEvent("", "", []any{"a"})
	require.NoError(t, err)
	assert.Equal(t, "data: [\"a\"]\n\n", bare)
}

func TestServer_WebSocket(t *testing.T) {
	rt := newRouter(t, castleEvents)
	srv := New(Config{Port: 0}, rt)
	require.NoError(t, srv.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	}()

	assert.ErrorIs(t, srv.Start(), ErrAlreadyRunning)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(ctx, "ws://"+srv.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(ws.StatusNormalClosure, "done")

	frame, err := json.Marshal(map[string]any{
		"channel":   "castles/created",
		"eventType": "castle.created",
		"data":      map[string]any{"name": "Château C"},
	})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, ws.MessageText, frame))

	kind, raw, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.MessageText, kind)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "castle.created", envelope["eventType"])
	assert.NotEmpty(t, envelope["eventId"])
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Mock Resource", data["name"])
}

func TestServer_WebSocketNoMatch(t *testing.T) {
	rt := newRouter(t, castleEvents)
	srv := New(Config{Port: 0}, rt)
	require.NoError(t, srv.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(ctx, "ws://"+srv.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(ws.StatusNormalClosure, "done")

	frame := []byte(`{"channel": "dragons/hatched"}`)
	require.NoError(t, conn.Write(ctx, ws.MessageText, frame))

	_, raw, err := conn.Read(ctx)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "no matching operation", body["error"])
}

func TestServer_BodyLimit(t *testing.T) {
	rt := newRouter(t, castleAPI)
	srv := New(Config{MaxBodyBytes: 16}, rt)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/castles", strings.NewReader(`{"name": "far too long for the configured limit"}`))
	srv.ServeHTTP(rec, req)

	// Oversized bodies are dropped, not fatal: the operation still
	// matches and synthesis proceeds without the body.
	assert.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
	assert.NotContains(t, body, "name")
}
