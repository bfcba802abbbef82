package spec

import (
	"github.com/cliftonc/entente/pkg/contract"
)

// ParsedSpec is a raw specification parsed by one handler. The operation
// list is extracted once at parse time and cached for the spec's
// lifetime; Document holds the handler's native parse result.
type ParsedSpec struct {
	Format     contract.SpecType
	Document   any
	Operations []contract.Operation
}

// ValidationResult reports how an actual response compared to the
// expectation recorded for an operation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// FixtureScorer ranks a fixture pool for one matched request. The default
// scorer lives in pkg/fixture; handlers may supply a format-specific
// refinement through Handler.FixtureScorer.
type FixtureScorer interface {
	ScoreFixtures(fixtures []*contract.Fixture, req *contract.Request, op *contract.Operation, cand *contract.MatchCandidate) []contract.FixtureScore
}

// Handler is the capability set one spec format implements. All methods
// are pure: they read their inputs and allocate fresh outputs, so a
// Handler is safe for concurrent use.
type Handler interface {
	// Format identifies the spec format this handler owns.
	Format() contract.SpecType

	// CanHandle reports whether raw looks like this handler's format.
	// It must never panic, whatever bytes it is given.
	CanHandle(raw []byte) bool

	// ParseSpec parses raw into a ParsedSpec with cached operations.
	// Malformed input fails with a *SpecFormatError.
	ParseSpec(raw []byte) (*ParsedSpec, error)

	// MatchOperation classifies a canonical request against the cached
	// operation list, best candidate first. Malformed requests degrade to
	// an empty candidate list, never an error.
	MatchOperation(req *contract.Request, ops []contract.Operation) []contract.MatchCandidate

	// GenerateResponse produces a canonical response for a matched
	// operation: replayed from selected when possible, otherwise
	// synthesized from the operation shape.
	GenerateResponse(op *contract.Operation, fixtures []*contract.Fixture, req *contract.Request, cand *contract.MatchCandidate, selected *contract.Fixture) *contract.Response

	// ValidateResponse compares an actual response against the expected
	// one for an operation.
	ValidateResponse(op *contract.Operation, expected, actual *contract.Response) *ValidationResult

	// FixtureScorer returns a format-specific fixture scorer, or nil to
	// use the default scorer.
	FixtureScorer() FixtureScorer

	// ConvertLocalMockData turns per-operation mock data supplied by test
	// code into always-eligible local fixtures.
	ConvertLocalMockData(mockData map[string]any, service, version string) []*contract.Fixture

	// ExtractEntities pulls domain entities and relationships out of one
	// fixture payload for the external normalization pipeline.
	ExtractEntities(f *contract.Fixture) *contract.EntityGraph

	// InferEntityType guesses the entity type an operation works on, or
	// returns "" when no guess is possible.
	InferEntityType(operationID string) string
}
