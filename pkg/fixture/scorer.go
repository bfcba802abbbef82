package fixture

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/cliftonc/entente/pkg/contract"
)

// Total-score weights. Specificity dominates source bias, which
// dominates priority, for any realistic priority value.
const (
	specificityWeight = 100.0
	sourceWeight      = 10.0
)

// Usable reports whether a fixture may be replayed: approved fixtures
// from storage, or local fixtures supplied directly by test code.
func Usable(f *contract.Fixture) bool {
	return f.Local || f.Status == contract.FixtureApproved
}

// Filter narrows a pool to usable fixtures for one operation and format.
func Filter(fixtures []*contract.Fixture, operationID string, format contract.SpecType) []*contract.Fixture {
	var out []*contract.Fixture
	for _, f := range fixtures {
		if f.Operation == operationID && f.SpecType == format && Usable(f) {
			out = append(out, f)
		}
	}
	return out
}

// DefaultScorer is the format-independent fixture scorer: request
// affinity (extracted parameters present in the fixture's stored
// request), then source bias, then priority.
type DefaultScorer struct {
	Format contract.SpecType
}

// NewScorer builds the default scorer for one spec format.
func NewScorer(format contract.SpecType) *DefaultScorer {
	return &DefaultScorer{Format: format}
}

// ScoreFixtures ranks the pool for one matched request, best first.
// Fixtures for other operations or formats are not scored at all.
func (s *DefaultScorer) ScoreFixtures(fixtures []*contract.Fixture, req *contract.Request, op *contract.Operation, cand *contract.MatchCandidate) []contract.FixtureScore {
	eligible := Filter(fixtures, op.ID, s.Format)

	scores := make([]contract.FixtureScore, 0, len(eligible))
	for _, f := range eligible {
		score := contract.FixtureScore{
			FixtureID:        f.ID,
			SourceScore:      float64(contract.SourceRank(f.Source)),
			PriorityScore:    float64(f.Priority),
			SpecificityScore: specificity(f, cand),
		}
		score.Total = score.SpecificityScore*specificityWeight +
			score.SourceScore*sourceWeight +
			score.PriorityScore
		score.Reasons = []string{
			fmt.Sprintf("source %s (rank %.0f)", f.Source, score.SourceScore),
			fmt.Sprintf("priority %d", f.Priority),
			fmt.Sprintf("parameter affinity %.2f", score.SpecificityScore),
		}
		scores = append(scores, score)
	}

	SortScores(scores)
	return scores
}

// specificity measures how many of the candidate's extracted parameters
// reappear, with equal values, in the fixture's stored request. Returns
// the matched fraction in [0,1]; 0 when the candidate extracted nothing.
func specificity(f *contract.Fixture, cand *contract.MatchCandidate) float64 {
	if cand == nil || len(cand.Parameters) == 0 {
		return 0
	}

	stored := map[string]any{}
	if params, ok := f.Data.Request["params"].(map[string]any); ok {
		for k, v := range params {
			stored[k] = v
		}
	}
	if vars := f.RequestVariables(); vars != nil {
		for k, v := range vars {
			stored[k] = v
		}
	}
	if len(stored) == 0 {
		return 0
	}

	matched := 0
	for k, v := range cand.Parameters {
		if sv, ok := stored[k]; ok && valuesEqual(sv, v) {
			matched++
		}
	}
	return float64(matched) / float64(len(cand.Parameters))
}

// valuesEqual compares parameter values loosely enough to bridge the
// string form extracted from paths and the typed form stored in fixture
// payloads.
func valuesEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// SortScores orders scores best first: total descending, source bias,
// priority, then fixture ID for determinism.
func SortScores(scores []contract.FixtureScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		if scores[i].SourceScore != scores[j].SourceScore {
			return scores[i].SourceScore > scores[j].SourceScore
		}
		if scores[i].PriorityScore != scores[j].PriorityScore {
			return scores[i].PriorityScore > scores[j].PriorityScore
		}
		return scores[i].FixtureID < scores[j].FixtureID
	})
}

// Select resolves the best-ranked score back to its fixture. Returns
// false when the score list is empty.
func Select(fixtures []*contract.Fixture, scores []contract.FixtureScore) (*contract.Fixture, bool) {
	if len(scores) == 0 {
		return nil, false
	}
	for _, f := range fixtures {
		if f.ID == scores[0].FixtureID {
			return f, true
		}
	}
	return nil, false
}
