package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/spec"
)

const castleSDL = `
type Castle {
  id: ID!
  name: String!
}

type Query {
  listCastles: [Castle!]!
  getCastle(id: ID!): Castle
}

type Mutation {
  createCastle(name: String!): Castle!
}

type Subscription {
  castleUpdated: Castle!
}
`

func parseSDLSpec(t *testing.T) *spec.ParsedSpec {
	t.Helper()
	parsed, err := New().ParseSpec([]byte(castleSDL))
	require.NoError(t, err)
	return parsed
}

func graphQLRequest(query string, variables map[string]any) *contract.Request {
	body := map[string]any{"query": query}
	if variables != nil {
		body["variables"] = variables
	}
	return contract.NewRequest("POST", "/graphql", map[string]string{"content-type": "application/json"}, nil, body)
}

func TestCanHandle(t *testing.T) {
	h := New()

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"sdl", castleSDL, true},
		{"wrapper object", `{"schema": "type Query { ping: String }"}`, true},
		{"introspection result", `{"data": {"__schema": {"queryType": {"name": "Query"}, "types": []}}}`, true},
		{"bare introspection", `{"__schema": {"queryType": {"name": "Query"}, "types": []}}`, true},
		{"openapi json", `{"openapi": "3.0.0"}`, false},
		{"asyncapi yaml", "asyncapi: 2.6.0\nchannels: {}\n", false},
		{"empty", "", false},
		{"garbage", "not a { schema", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.CanHandle([]byte(tt.raw)))
		})
	}
}

func TestParseSpec_OperationsPerRootField(t *testing.T) {
	parsed := parseSDLSpec(t)
	assert.Equal(t, contract.SpecTypeGraphQL, parsed.Format)

	ids := make(map[string]contract.OperationKind, len(parsed.Operations))
	for _, op := range parsed.Operations {
		ids[op.ID] = op.Kind
	}

	assert.Equal(t, contract.KindQuery, ids["Query.listCastles"])
	assert.Equal(t, contract.KindQuery, ids["Query.getCastle"])
	assert.Equal(t, contract.KindMutation, ids["Mutation.createCastle"])
	assert.Equal(t, contract.KindSubscription, ids["Subscription.castleUpdated"])
	assert.Len(t, parsed.Operations, 4)
}

func TestParseSpec_Introspection(t *testing.T) {
	raw := `{
  "data": {
    "__schema": {
      "queryType": {"name": "Query"},
      "types": [
        {"name": "Query", "fields": [{"name": "listCastles"}, {"name": "getCastle"}]}
      ]
    }
  }
}`
	parsed, err := New().ParseSpec([]byte(raw))
	require.NoError(t, err)
	require.Len(t, parsed.Operations, 2)
	assert.Equal(t, "Query.getCastle", parsed.Operations[0].ID)
}

func TestParseSpec_Malformed(t *testing.T) {
	_, err := New().ParseSpec([]byte("type Query {"))
	require.Error(t, err)

	var formatErr *spec.SpecFormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestMatchOperation_Query(t *testing.T) {
	parsed := parseSDLSpec(t)
	h := New()

	req := graphQLRequest(`query { listCastles { id name } }`, nil)
	candidates := h.MatchOperation(req, parsed.Operations)

	require.Len(t, candidates, 1)
	cand := candidates[0]
	assert.Equal(t, "Query.listCastles", cand.Operation.ID)
	// base 0.8 + kind 0.15 + field name 0.05
	assert.InDelta(t, 1.0, cand.Confidence, 1e-9)
	assert.Equal(t, "listCastles", cand.Parameters["field"])
}

func TestMatchOperation_MutationKindBonus(t *testing.T) {
	parsed := parseSDLSpec(t)
	h := New()

	req := graphQLRequest(`mutation { createCastle(name: "A") { id } }`, nil)
	candidates := h.MatchOperation(req, parsed.Operations)

	require.Len(t, candidates, 1)
	assert.Equal(t, "Mutation.createCastle", candidates[0].Operation.ID)
	assert.InDelta(t, 1.0, candidates[0].Confidence, 1e-9)
}

func TestMatchOperation_VariablesExtracted(t *testing.T) {
	parsed := parseSDLSpec(t)
	h := New()

	vars := map[string]any{"id": "42"}
	req := graphQLRequest(`query GetCastle($id: ID!) { getCastle(id: $id) { id } }`, vars)
	candidates := h.MatchOperation(req, parsed.Operations)

	require.Len(t, candidates, 1)
	assert.Equal(t, vars, candidates[0].Parameters["variables"])
}

func TestMatchOperation_Introspection(t *testing.T) {
	parsed := parseSDLSpec(t)
	h := New()

	req := graphQLRequest(`query { __schema { types { name } } }`, nil)
	candidates := h.MatchOperation(req, parsed.Operations)

	require.Len(t, candidates, 1)
	assert.Equal(t, introspectionID, candidates[0].Operation.ID)
	assert.Equal(t, 1.0, candidates[0].Confidence)
}

func TestMatchOperation_DegradesGracefully(t *testing.T) {
	parsed := parseSDLSpec(t)
	h := New()

	t.Run("malformed query text", func(t *testing.T) {
		req := graphQLRequest(`query { listCastles {`, nil)
		assert.Empty(t, h.MatchOperation(req, parsed.Operations))
	})

	t.Run("wrong endpoint path", func(t *testing.T) {
		body := map[string]any{"query": "query { listCastles { id } }"}
		req := contract.NewRequest("POST", "/castles", nil, nil, body)
		assert.Empty(t, h.MatchOperation(req, parsed.Operations))
	})

	t.Run("no query field", func(t *testing.T) {
		req := contract.NewRequest("POST", "/graphql", nil, nil, map[string]any{"q": "x"})
		assert.Empty(t, h.MatchOperation(req, parsed.Operations))
	})

	t.Run("unknown field", func(t *testing.T) {
		req := graphQLRequest(`query { listKnights { id } }`, nil)
		assert.Empty(t, h.MatchOperation(req, parsed.Operations))
	})
}

func graphQLFixture(id string, source contract.FixtureSource, priority int, variables map[string]any, body any) *contract.Fixture {
	f := &contract.Fixture{
		ID:        id,
		Operation: "Query.getCastle",
		SpecType:  contract.SpecTypeGraphQL,
		Status:    contract.FixtureApproved,
		Source:    source,
		Priority:  priority,
		Data: contract.FixtureData{
			Request:  map[string]any{},
			Response: map[string]any{"status": float64(200), "body": body},
		},
	}
	if variables != nil {
		f.Data.Request["variables"] = variables
	}
	return f
}

func TestVariableScorer_ExactMatchBeatsPriority(t *testing.T) {
	// Fixture A's variables equal the request exactly; B has higher
	// priority but different variables. A must always win.
	fixA := graphQLFixture("fix-a", contract.SourceConsumer, 1,
		map[string]any{"id": "42"}, map[string]any{"id": "42", "name": "Château A"})
	fixB := graphQLFixture("fix-b", contract.SourceProvider, 9,
		map[string]any{"id": "7"}, map[string]any{"id": "7", "name": "Château B"})

	op := &contract.Operation{ID: "Query.getCastle", Kind: contract.KindQuery}
	cand := &contract.MatchCandidate{
		Operation:  op,
		Parameters: map[string]any{"variables": map[string]any{"id": "42"}},
	}

	scorer := New().FixtureScorer()
	require.NotNil(t, scorer)

	scores := scorer.ScoreFixtures([]*contract.Fixture{fixB, fixA}, &contract.Request{}, op, cand)
	require.Len(t, scores, 2)
	assert.Equal(t, "fix-a", scores[0].FixtureID)
}

func TestVariableScorer_PartialAboveNone(t *testing.T) {
	partial := graphQLFixture("partial", contract.SourceConsumer, 1,
		map[string]any{"id": "42", "lang": "fr"}, nil)
	none := graphQLFixture("none", contract.SourceProvider, 9,
		map[string]any{"id": "7"}, nil)

	op := &contract.Operation{ID: "Query.getCastle", Kind: contract.KindQuery}
	cand := &contract.MatchCandidate{
		Operation:  op,
		Parameters: map[string]any{"variables": map[string]any{"id": "42"}},
	}

	scores := New().FixtureScorer().ScoreFixtures([]*contract.Fixture{none, partial}, &contract.Request{}, op, cand)
	require.Len(t, scores, 2)
	assert.Equal(t, "partial", scores[0].FixtureID)
}

func TestVariableScorer_FallbackUsesSourceBias(t *testing.T) {
	// No variables anywhere: provider must outrank consumer at equal
	// priority, the same tie-break as the other formats.
	fromConsumer := graphQLFixture("from-consumer", contract.SourceConsumer, 5, nil, nil)
	fromProvider := graphQLFixture("from-provider", contract.SourceProvider, 5, nil, nil)

	op := &contract.Operation{ID: "Query.getCastle", Kind: contract.KindQuery}
	cand := &contract.MatchCandidate{Operation: op}

	scores := New().FixtureScorer().ScoreFixtures([]*contract.Fixture{fromConsumer, fromProvider}, &contract.Request{}, op, cand)
	require.Len(t, scores, 2)
	assert.Equal(t, "from-provider", scores[0].FixtureID)
}

func TestGenerateResponse_ReplaysFixture(t *testing.T) {
	h := New()
	op := &contract.Operation{ID: "Query.getCastle", Kind: contract.KindQuery}
	fix := graphQLFixture("fix", contract.SourceProvider, 1, nil,
		map[string]any{"data": map[string]any{"getCastle": map[string]any{"id": "42"}}})

	resp := h.GenerateResponse(op, []*contract.Fixture{fix}, &contract.Request{}, &contract.MatchCandidate{Operation: op}, fix)
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.Status)

	body := resp.Body.(map[string]any)
	data := body["data"].(map[string]any)
	castle := data["getCastle"].(map[string]any)
	assert.Equal(t, "42", castle["id"])
}

func TestGenerateResponse_Synthesis(t *testing.T) {
	h := New()

	tests := []struct {
		name  string
		opID  string
		check func(t *testing.T, value any)
	}{
		{
			name: "list returns array",
			opID: "Query.listCastles",
			check: func(t *testing.T, value any) {
				list, ok := value.([]any)
				require.True(t, ok)
				assert.Len(t, list, 1)
			},
		},
		{
			name: "create returns object with id",
			opID: "Mutation.createCastle",
			check: func(t *testing.T, value any) {
				obj, ok := value.(map[string]any)
				require.True(t, ok)
				assert.NotEmpty(t, obj["id"])
			},
		},
		{
			name: "delete reports success",
			opID: "Mutation.deleteCastle",
			check: func(t *testing.T, value any) {
				obj, ok := value.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, true, obj["success"])
			},
		},
		{
			name: "get returns object",
			opID: "Query.getCastle",
			check: func(t *testing.T, value any) {
				_, ok := value.(map[string]any)
				assert.True(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &contract.Operation{ID: tt.opID}
			resp := h.GenerateResponse(op, nil, &contract.Request{}, &contract.MatchCandidate{Operation: op}, nil)
			require.NotNil(t, resp)

			body := resp.Body.(map[string]any)
			data, ok := body["data"].(map[string]any)
			require.True(t, ok)
			tt.check(t, data[fieldName(tt.opID)])
		})
	}
}

func TestInferEntityType(t *testing.T) {
	h := New()
	assert.Equal(t, "castle", h.InferEntityType("Query.listCastles"))
	assert.Equal(t, "castle", h.InferEntityType("Query.getCastle"))
	assert.Equal(t, "castle", h.InferEntityType("Mutation.createCastle"))
	assert.Equal(t, "castle", h.InferEntityType("Query.castles"))
	assert.Equal(t, "", h.InferEntityType("Query.__schema"))
}

func TestConvertLocalMockData(t *testing.T) {
	h := New()
	fixtures := h.ConvertLocalMockData(map[string]any{
		"listCastles":     []any{map[string]any{"id": "1"}},
		"Query.getCastle": map[string]any{"id": "1"},
	}, "castles", "1.0.0")

	require.Len(t, fixtures, 2)
	ops := map[string]bool{}
	for _, f := range fixtures {
		ops[f.Operation] = true
		assert.True(t, f.Local)
		assert.Equal(t, contract.SpecTypeGraphQL, f.SpecType)
	}
	assert.True(t, ops["Query.listCastles"], "bare field names default to the Query root")
	assert.True(t, ops["Query.getCastle"])
}

func TestValidateResponse(t *testing.T) {
	h := New()
	op := &contract.Operation{ID: "Query.getCastle", Kind: contract.KindQuery}

	t.Run("valid envelope", func(t *testing.T) {
		actual := contract.JSONResponse(200, map[string]any{"data": map[string]any{"getCastle": nil}})
		assert.True(t, h.ValidateResponse(op, nil, actual).Valid)
	})

	t.Run("missing data", func(t *testing.T) {
		actual := contract.JSONResponse(200, map[string]any{"errors": []any{map[string]any{"message": "boom"}}})
		result := h.ValidateResponse(op, nil, actual)
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Warnings)
	})
}
