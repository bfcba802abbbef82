package graphql

import (
	"fmt"
	"reflect"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/fixture"
)

// Variable-affinity levels. Full exact matches dominate partial overlaps,
// which dominate fixtures with no variable affinity at all.
const (
	affinityFull    = 1.0
	affinityPartial = 0.5
	affinityNone    = 0.0
)

// VariableScorer is the GraphQL fixture scorer: fixtures for the matched
// operation are ranked by how exactly their stored variables equal the
// request's variables. Ties fall back to source bias (provider > manual >
// consumer), then priority — the same tie-break order as every other
// format.
type VariableScorer struct {
	Format contract.SpecType
}

// ScoreFixtures ranks the pool for one matched GraphQL request.
func (s *VariableScorer) ScoreFixtures(fixtures []*contract.Fixture, req *contract.Request, op *contract.Operation, cand *contract.MatchCandidate) []contract.FixtureScore {
	eligible := fixture.Filter(fixtures, op.ID, s.Format)

	var requestVars map[string]any
	if cand != nil {
		requestVars, _ = cand.Parameters["variables"].(map[string]any)
	}

	scores := make([]contract.FixtureScore, 0, len(eligible))
	for _, f := range eligible {
		affinity := variableAffinity(requestVars, f.RequestVariables())
		score := contract.FixtureScore{
			FixtureID:        f.ID,
			SourceScore:      float64(contract.SourceRank(f.Source)),
			PriorityScore:    float64(f.Priority),
			SpecificityScore: affinity,
		}
		score.Total = affinity*100 + score.SourceScore*10 + score.PriorityScore
		score.Reasons = []string{
			variableReason(affinity),
			fmt.Sprintf("source %s", f.Source),
			fmt.Sprintf("priority %d", f.Priority),
		}
		scores = append(scores, score)
	}

	fixture.SortScores(scores)
	return scores
}

// variableAffinity compares request variables to a fixture's stored
// variables: full when both sets are equal, partial when at least one
// variable matches, none otherwise.
func variableAffinity(requestVars, fixtureVars map[string]any) float64 {
	if len(requestVars) == 0 || len(fixtureVars) == 0 {
		return affinityNone
	}

	matched := 0
	for name, want := range fixtureVars {
		if got, ok := requestVars[name]; ok && reflect.DeepEqual(want, got) {
			matched++
		}
	}

	if matched == len(fixtureVars) && len(fixtureVars) == len(requestVars) {
		return affinityFull
	}
	if matched > 0 {
		return affinityPartial
	}
	return affinityNone
}

func variableReason(affinity float64) string {
	switch affinity {
	case affinityFull:
		return "variables match exactly"
	case affinityPartial:
		return "variables match partially"
	default:
		return "no variable match"
	}
}
