package contract

import "sort"

// MatchCandidate is one ranked interpretation of a request as an instance
// of a spec operation. Candidates are ephemeral: produced fresh per
// request, ordered by confidence, then by extracted-parameter count
// (more parameters means a more specific route).
type MatchCandidate struct {
	// Operation is the candidate operation.
	Operation *Operation `json:"operation"`
	// Confidence is the match confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Reasons are human-readable explanations of the score.
	Reasons []string `json:"reasons,omitempty"`
	// Metrics holds numeric sub-scores, e.g. "pathScore".
	Metrics map[string]float64 `json:"metrics,omitempty"`
	// Parameters holds values extracted from the request: path or channel
	// params, GraphQL variables, selected fields.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// SortCandidates orders candidates best-first: by confidence descending,
// ties broken by extracted-parameter count descending, then by operation
// ID for determinism.
func SortCandidates(candidates []MatchCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		pi, pj := len(candidates[i].Parameters), len(candidates[j].Parameters)
		if pi != pj {
			return pi > pj
		}
		return candidates[i].Operation.ID < candidates[j].Operation.ID
	})
}

// FixtureScore records how one fixture ranked for a matched request.
// One set is produced per matched request and discarded afterwards.
type FixtureScore struct {
	// FixtureID identifies the scored fixture.
	FixtureID string `json:"fixtureId"`
	// SourceScore is the source-bias component (provider > manual > consumer).
	SourceScore float64 `json:"sourceScore"`
	// PriorityScore is the fixture-priority component.
	PriorityScore float64 `json:"priorityScore"`
	// SpecificityScore is the request-affinity component.
	SpecificityScore float64 `json:"specificityScore"`
	// Total is the combined score used for ranking.
	Total float64 `json:"total"`
	// Reasons explain the ranking.
	Reasons []string `json:"reasons,omitempty"`
}
