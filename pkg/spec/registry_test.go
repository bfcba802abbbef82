package spec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliftonc/entente/pkg/contract"
)

// stubHandler recognizes raw specs containing its marker string.
type stubHandler struct {
	format contract.SpecType
	marker string
}

func (s *stubHandler) Format() contract.SpecType { return s.format }

func (s *stubHandler) CanHandle(raw []byte) bool {
	return bytes.Contains(raw, []byte(s.marker))
}

func (s *stubHandler) ParseSpec(raw []byte) (*ParsedSpec, error) {
	if !s.CanHandle(raw) {
		return nil, &SpecFormatError{Format: s.format, Err: errors.New("marker missing")}
	}
	return &ParsedSpec{Format: s.format}, nil
}

func (s *stubHandler) MatchOperation(*contract.Request, []contract.Operation) []contract.MatchCandidate {
	return nil
}

func (s *stubHandler) GenerateResponse(*contract.Operation, []*contract.Fixture, *contract.Request, *contract.MatchCandidate, *contract.Fixture) *contract.Response {
	return nil
}

func (s *stubHandler) ValidateResponse(*contract.Operation, *contract.Response, *contract.Response) *ValidationResult {
	return &ValidationResult{Valid: true}
}

func (s *stubHandler) FixtureScorer() FixtureScorer { return nil }

func (s *stubHandler) ConvertLocalMockData(map[string]any, string, string) []*contract.Fixture {
	return nil
}

func (s *stubHandler) ExtractEntities(*contract.Fixture) *contract.EntityGraph {
	return &contract.EntityGraph{}
}

func (s *stubHandler) InferEntityType(string) string { return "" }

func TestNewRegistry_RejectsDuplicateFormat(t *testing.T) {
	_, err := NewRegistry(
		&stubHandler{format: contract.SpecTypeOpenAPI, marker: "openapi"},
		&stubHandler{format: contract.SpecTypeOpenAPI, marker: "swagger"},
	)
	require.Error(t, err)

	var dup *DuplicateHandlerError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, contract.SpecTypeOpenAPI, dup.Format)
}

func TestRegistry_DetectType_RegistrationOrder(t *testing.T) {
	// Both handlers recognize "shared"; registration order wins.
	reg, err := NewRegistry(
		&stubHandler{format: contract.SpecTypeGraphQL, marker: "shared"},
		&stubHandler{format: contract.SpecTypeAsyncAPI, marker: "shared"},
	)
	require.NoError(t, err)

	format, ok := reg.DetectType([]byte("shared spec"))
	require.True(t, ok)
	assert.Equal(t, contract.SpecTypeGraphQL, format)
}

func TestRegistry_DetectType_NoMatch(t *testing.T) {
	reg, err := NewRegistry(&stubHandler{format: contract.SpecTypeOpenAPI, marker: "openapi"})
	require.NoError(t, err)

	format, ok := reg.DetectType([]byte("type Query { ping: String }"))
	assert.False(t, ok)
	assert.Equal(t, contract.SpecTypeUnknown, format)
}

func TestRegistry_ParseSpec_Delegates(t *testing.T) {
	reg, err := NewRegistry(&stubHandler{format: contract.SpecTypeOpenAPI, marker: "openapi"})
	require.NoError(t, err)

	parsed, err := reg.ParseSpec([]byte(`{"openapi":"3.0.0"}`))
	require.NoError(t, err)
	assert.Equal(t, contract.SpecTypeOpenAPI, parsed.Format)
}

func TestRegistry_ParseSpec_NoHandler(t *testing.T) {
	reg, err := NewRegistry(&stubHandler{format: contract.SpecTypeOpenAPI, marker: "openapi"})
	require.NoError(t, err)

	_, err = reg.ParseSpec([]byte("garbage"))
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestRegistry_Handler(t *testing.T) {
	h := &stubHandler{format: contract.SpecTypeAsyncAPI, marker: "asyncapi"}
	reg, err := NewRegistry(h)
	require.NoError(t, err)

	got, ok := reg.Handler(contract.SpecTypeAsyncAPI)
	require.True(t, ok)
	assert.Same(t, Handler(h), got)

	_, ok = reg.Handler(contract.SpecTypeGraphQL)
	assert.False(t, ok)
}
