package router

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/fixture"
	"github.com/cliftonc/entente/pkg/logging"
	"github.com/cliftonc/entente/pkg/spec"
)

// ErrNoSpec is returned when routing is attempted before a spec loads.
var ErrNoSpec = errors.New("router: no spec loaded")

// MatchOutcome is the complete result of routing one request. A request
// either matched (operation id, ranked candidates, the fixture replayed
// or none, and the response) or it did not; adapters translate a
// non-match to their transport's negative answer and never fabricate.
type MatchOutcome struct {
	// Matched reports whether any operation claimed the request.
	Matched bool `json:"matched"`
	// Format is the loaded spec's format.
	Format contract.SpecType `json:"specType,omitempty"`
	// OperationID is the winning operation, empty on no match.
	OperationID string `json:"operationId,omitempty"`
	// Candidates lists every scored interpretation, best first.
	Candidates []contract.MatchCandidate `json:"candidates,omitempty"`
	// FixtureID is the replayed fixture, empty when synthesized.
	FixtureID string `json:"fixtureId,omitempty"`
	// FixtureScores ranks the eligible pool, best first.
	FixtureScores []contract.FixtureScore `json:"fixtureScores,omitempty"`
	// Response is the mock response, nil on no match.
	Response *contract.Response `json:"response,omitempty"`
}

// Router routes canonical requests through the handler for the loaded
// spec. Load the spec and fixtures up front; Route and Tag are then safe
// for concurrent use.
type Router struct {
	registry *spec.Registry
	logger   *slog.Logger

	mu       sync.RWMutex
	handler  spec.Handler
	parsed   *spec.ParsedSpec
	fixtures []*contract.Fixture
}

// New builds a router over a handler registry. A nil logger disables
// logging.
func New(registry *spec.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Router{registry: registry, logger: logger}
}

// LoadSpec detects the format of raw, parses it, and caches the
// operation list. Unrecognized input fails with spec.ErrNoHandler.
func (r *Router) LoadSpec(raw []byte) error {
	format, ok := r.registry.DetectType(raw)
	if !ok {
		return spec.ErrNoHandler
	}
	handler, _ := r.registry.Handler(format)
	parsed, err := handler.ParseSpec(raw)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.handler = handler
	r.parsed = parsed
	r.mu.Unlock()

	r.logger.Info("spec loaded",
		"format", format,
		"operations", len(parsed.Operations))
	return nil
}

// SetFixtures replaces the fixture pool.
func (r *Router) SetFixtures(fixtures []*contract.Fixture) {
	r.mu.Lock()
	r.fixtures = fixtures
	r.mu.Unlock()
}

// AddFixtures appends to the fixture pool.
func (r *Router) AddFixtures(fixtures ...*contract.Fixture) {
	r.mu.Lock()
	r.fixtures = append(r.fixtures, fixtures...)
	r.mu.Unlock()
}

// UseLocalMockData converts per-operation mock data into local fixtures
// for the loaded format and adds them to the pool.
func (r *Router) UseLocalMockData(mockData map[string]any, service, version string) error {
	r.mu.RLock()
	handler := r.handler
	r.mu.RUnlock()
	if handler == nil {
		return ErrNoSpec
	}
	r.AddFixtures(handler.ConvertLocalMockData(mockData, service, version)...)
	return nil
}

// Format returns the loaded spec's format, or SpecTypeUnknown.
func (r *Router) Format() contract.SpecType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.parsed == nil {
		return contract.SpecTypeUnknown
	}
	return r.parsed.Format
}

// Operations returns the loaded spec's cached operation list.
func (r *Router) Operations() []contract.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.parsed == nil {
		return nil
	}
	return r.parsed.Operations
}

// Route classifies req, ranks the fixture pool for the winner, and
// produces the response. Malformed requests and handler panics degrade
// to a non-matched outcome, never an error or a crash.
func (r *Router) Route(req *contract.Request) (out *MatchOutcome) {
	r.mu.RLock()
	handler, parsed, fixtures := r.handler, r.parsed, r.fixtures
	r.mu.RUnlock()

	out = &MatchOutcome{}
	if parsed == nil || req == nil {
		return out
	}
	out.Format = parsed.Format

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("routing panic recovered", "panic", rec)
			out = &MatchOutcome{Format: parsed.Format}
		}
	}()

	candidates := handler.MatchOperation(req, parsed.Operations)
	if len(candidates) == 0 || candidates[0].Confidence <= 0 {
		r.logger.Debug("no operation matched",
			"method", req.Method,
			"path", req.Path,
			"channel", req.Channel)
		return out
	}

	top := &candidates[0]
	out.Matched = true
	out.OperationID = top.Operation.ID
	out.Candidates = candidates

	scorer := handler.FixtureScorer()
	if scorer == nil {
		scorer = fixture.NewScorer(parsed.Format)
	}
	pool := fixture.Filter(fixtures, top.Operation.ID, parsed.Format)
	scores := scorer.ScoreFixtures(pool, req, top.Operation, top)
	out.FixtureScores = scores

	var selected *contract.Fixture
	if f, ok := fixture.Select(pool, scores); ok {
		selected = f
		out.FixtureID = f.ID
	}

	out.Response = handler.GenerateResponse(top.Operation, fixtures, req, top, selected)
	r.logger.Debug("request routed",
		"operation", out.OperationID,
		"confidence", top.Confidence,
		"fixture", out.FixtureID)
	return out
}

// Tag classifies req without touching fixtures or generating a
// response. The interceptor uses this path to label observed traffic.
func (r *Router) Tag(req *contract.Request) (out *MatchOutcome) {
	r.mu.RLock()
	handler, parsed := r.handler, r.parsed
	r.mu.RUnlock()

	out = &MatchOutcome{}
	if parsed == nil || req == nil {
		return out
	}
	out.Format = parsed.Format

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tagging panic recovered", "panic", rec)
			out = &MatchOutcome{Format: parsed.Format}
		}
	}()

	candidates := handler.MatchOperation(req, parsed.Operations)
	if len(candidates) == 0 || candidates[0].Confidence <= 0 {
		return out
	}
	out.Matched = true
	out.OperationID = candidates[0].Operation.ID
	out.Candidates = candidates
	return out
}

// Validate compares an observed response against the outcome's matched
// operation. Non-matched outcomes validate as true with a warning, since
// there is no expectation to hold the response to.
func (r *Router) Validate(out *MatchOutcome, expected, actual *contract.Response) *spec.ValidationResult {
	r.mu.RLock()
	handler, parsed := r.handler, r.parsed
	r.mu.RUnlock()

	if out == nil || !out.Matched || parsed == nil {
		return &spec.ValidationResult{
			Valid:    true,
			Warnings: []string{"no matched operation to validate against"},
		}
	}
	for i := range parsed.Operations {
		if parsed.Operations[i].ID == out.OperationID {
			return handler.ValidateResponse(&parsed.Operations[i], expected, actual)
		}
	}
	return &spec.ValidationResult{
		Valid:    true,
		Warnings: []string{"matched operation no longer in spec"},
	}
}
