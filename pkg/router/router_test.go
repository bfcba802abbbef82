package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliftonc/entente/pkg/contract"
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
      "get": {
        "operationId": "listCastles",
        "responses": {"200": {"description": "ok"}}
      },
      "post": {
        "operationId": "createCastle",
        "responses": {"201": {"description": "created"}}
      }
    },
    "/castles/{id}": {
      "get": {
        "operationId": "getCastle",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	registry, err := spec.NewRegistry(openapi.New(), graphql.New(), asyncapi.New())
	require.NoError(t, err)
	return New(registry, nil)
}

func loadCastleAPI(t *testing.T) *Router {
	t.Helper()
	r := newTestRouter(t)
	require.NoError(t, r.LoadSpec([]byte(castleAPI)))
	return r
}

func listFixture(id string, source contract.FixtureSource, priority int) *contract.Fixture {
	return &contract.Fixture{
		ID:        id,
		Operation: "listCastles",
		SpecType:  contract.SpecTypeOpenAPI,
		Status:    contract.FixtureApproved,
		Source:    source,
		Priority:  priority,
		Data: contract.FixtureData{
			Response: map[string]any{
				"status": float64(200),
				"body":   []any{map[string]any{"id": "1", "name": "Château A"}},
			},
		},
	}
}

func TestRouter_LoadSpec(t *testing.T) {
	r := newTestRouter(t)

	t.Run("unknown input", func(t *testing.T) {
		err := r.LoadSpec([]byte("not a spec of any kind"))
		assert.ErrorIs(t, err, spec.ErrNoHandler)
		assert.Equal(t, contract.SpecTypeUnknown, r.Format())
	})

	t.Run("openapi detected and cached", func(t *testing.T) {
		require.NoError(t, r.LoadSpec([]byte(castleAPI)))
		assert.Equal(t, contract.SpecTypeOpenAPI, r.Format())
		assert.Len(t, r.Operations(), 3)
	})

	t.Run("recognized but malformed", func(t *testing.T) {
		err := r.LoadSpec([]byte(`{"openapi": "3.0.0", "paths": "nope"}`))
		require.Error(t, err)
		var formatErr *spec.SpecFormatError
		assert.ErrorAs(t, err, &formatErr)
	})
}

func TestRouter_EndToEndCastles(t *testing.T) {
	r := loadCastleAPI(t)
	r.SetFixtures([]*contract.Fixture{listFixture("fx_list", contract.SourceProvider, 1)})

	t.Run("list replays the provider fixture", func(t *testing.T) {
		out := r.Route(contract.NewRequest("GET", "/castles", nil, nil, nil))
		require.True(t, out.Matched)
		assert.Equal(t, "listCastles", out.OperationID)
		assert.Equal(t, "fx_list", out.FixtureID)
		require.NotNil(t, out.Response)
		assert.Equal(t, 200, out.Response.Status)
		assert.Equal(t, []any{map[string]any{"id": "1", "name": "Château A"}}, out.Response.Body)
		require.NotEmpty(t, out.Candidates)
		assert.NotEmpty(t, out.Candidates[0].Reasons)
	})

	t.Run("get without fixture synthesizes", func(t *testing.T) {
		out := r.Route(contract.NewRequest("GET", "/castles/1", nil, nil, nil))
		require.True(t, out.Matched)
		assert.Equal(t, "getCastle", out.OperationID)
		assert.Empty(t, out.FixtureID)
		require.NotNil(t, out.Response)
		assert.Equal(t, 200, out.Response.Status)

		body, ok := out.Response.Body.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "1", body["id"])
		assert.Equal(t, "Mock Resource", body["name"])
	})
}

func TestRouter_NoMatch(t *testing.T) {
	r := loadCastleAPI(t)

	t.Run("unknown path", func(t *testing.T) {
		out := r.Route(contract.NewRequest("GET", "/dragons", nil, nil, nil))
		assert.False(t, out.Matched)
		assert.Nil(t, out.Response)
		assert.Empty(t, out.OperationID)
	})

	t.Run("nil request", func(t *testing.T) {
		out := r.Route(nil)
		assert.False(t, out.Matched)
	})

	t.Run("before any spec loads", func(t *testing.T) {
		bare := newTestRouter(t)
		out := bare.Route(contract.NewRequest("GET", "/castles", nil, nil, nil))
		assert.False(t, out.Matched)
		assert.Nil(t, out.Response)
	})
}

func TestRouter_Deterministic(t *testing.T) {
	r := loadCastleAPI(t)
	// Identical fixtures except id; the id breaks the tie, every time.
	r.SetFixtures([]*contract.Fixture{
		listFixture("fx_b", contract.SourceProvider, 1),
		listFixture("fx_a", contract.SourceProvider, 1),
	})

	req := contract.NewRequest("GET", "/castles", nil, nil, nil)
	first := r.Route(req)
	require.True(t, first.Matched)
	assert.Equal(t, "fx_a", first.FixtureID)
	for i := 0; i < 10; i++ {
		out := r.Route(req)
		assert.Equal(t, first.OperationID, out.OperationID)
		assert.Equal(t, first.FixtureID, out.FixtureID)
	}
}

func TestRouter_SourceBias(t *testing.T) {
	r := loadCastleAPI(t)
	r.SetFixtures([]*contract.Fixture{
		listFixture("fx_consumer", contract.SourceConsumer, 9),
		listFixture("fx_provider", contract.SourceProvider, 1),
	})

	out := r.Route(contract.NewRequest("GET", "/castles", nil, nil, nil))
	require.True(t, out.Matched)
	assert.Equal(t, "fx_provider", out.FixtureID)
	require.NotEmpty(t, out.FixtureScores)
	assert.Equal(t, "fx_provider", out.FixtureScores[0].FixtureID)
}

func TestRouter_Tag(t *testing.T) {
	r := loadCastleAPI(t)
	r.SetFixtures([]*contract.Fixture{listFixture("fx_list", contract.SourceProvider, 1)})

	out := r.Tag(contract.NewRequest("GET", "/castles", nil, nil, nil))
	require.True(t, out.Matched)
	assert.Equal(t, "listCastles", out.OperationID)
	assert.Nil(t, out.Response)
	assert.Empty(t, out.FixtureID)

	miss := r.Tag(contract.NewRequest("GET", "/dragons", nil, nil, nil))
	assert.False(t, miss.Matched)
}

func TestRouter_UseLocalMockData(t *testing.T) {
	t.Run("before spec loads", func(t *testing.T) {
		r := newTestRouter(t)
		err := r.UseLocalMockData(map[string]any{"listCastles": []any{}}, "castles", "1.0.0")
		assert.ErrorIs(t, err, ErrNoSpec)
	})

	t.Run("replays local data", func(t *testing.T) {
		r := loadCastleAPI(t)
		mock := []any{map[string]any{"id": "9", "name": "Local Castle"}}
		require.NoError(t, r.UseLocalMockData(map[string]any{"listCastles": mock}, "castles", "1.0.0"))

		out := r.Route(contract.NewRequest("GET", "/castles", nil, nil, nil))
		require.True(t, out.Matched)
		assert.Equal(t, "local_castles_listCastles", out.FixtureID)
		require.NotNil(t, out.Response)
		assert.Equal(t, mock, out.Response.Body)
	})
}

func TestRouter_Validate(t *testing.T) {
	r := loadCastleAPI(t)
	out := r.Route(contract.NewRequest("GET", "/castles/1", nil, nil, nil))
	require.True(t, out.Matched)

	t.Run("matching response", func(t *testing.T) {
		result := r.Validate(out, out.Response, out.Response)
		assert.True(t, result.Valid)
	})

	t.Run("status drift", func(t *testing.T) {
		actual := &contract.Response{Status: 500, Body: out.Response.Body}
		result := r.Validate(out, out.Response, actual)
		assert.False(t, result.Valid)
	})

	t.Run("non-matched outcome", func(t *testing.T) {
		result := r.Validate(&MatchOutcome{}, nil, nil)
		assert.True(t, result.Valid)
		assert.NotEmpty(t, result.Warnings)
	})
}

// panicHandler claims everything and panics when asked to match; the
// router must degrade that to a non-matched outcome.
type panicHandler struct{}

func (panicHandler) Format() contract.SpecType { return contract.SpecTypeOpenAPI }
func (panicHandler) CanHandle([]byte) bool     { return true }
func (panicHandler) ParseSpec(raw []byte) (*spec.ParsedSpec, error) {
	return &spec.ParsedSpec{
		Format:     contract.SpecTypeOpenAPI,
		Operations: []contract.Operation{{ID: "boom", Kind: contract.KindRest}},
	}, nil
}
func (panicHandler) MatchOperation(*contract.Request, []contract.Operation) []contract.MatchCandidate {
	panic("matcher exploded")
}
func (panicHandler) GenerateResponse(*contract.Operation, []*contract.Fixture, *contract.Request, *contract.MatchCandidate, *contract.Fixture) *contract.Response {
	return nil
}
func (panicHandler) ValidateResponse(*contract.Operation, *contract.Response, *contract.Response) *spec.ValidationResult {
	return &spec.ValidationResult{Valid: true}
}
func (panicHandler) FixtureScorer() spec.FixtureScorer { return nil }
func (panicHandler) ConvertLocalMockData(map[string]any, string, string) []*contract.Fixture {
	return nil
}
func (panicHandler) ExtractEntities(*contract.Fixture) *contract.EntityGraph {
	return &contract.EntityGraph{}
}
func (panicHandler) InferEntityType(string) string { return "" }

func TestRouter_PanicDegradesToNoMatch(t *testing.T) {
	registry, err := spec.NewRegistry(panicHandler{})
	require.NoError(t, err)
	r := New(registry, nil)
	require.NoError(t, r.LoadSpec([]byte("anything")))

	req := contract.NewRequest("GET", "/castles", nil, nil, nil)
	assert.NotPanics(t, func() {
		out := r.Route(req)
		assert.False(t, out.Matched)
		assert.Nil(t, out.Response)

		tagged := r.Tag(req)
		assert.False(t, tagged.Matched)
	})
}
