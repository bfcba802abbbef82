package openapi

import (
	"fmt"
	"strings"

	"github.com/cliftonc/entente/internal/matching"
	"github.com/cliftonc/entente/pkg/contract"
)

// MatchOperation classifies a canonical request against the REST
// operation list. The verb must match exactly (case-insensitive) or the
// operation scores zero and is dropped; the path contributes the rest of
// the confidence, with an exact literal match outranking a parameterized
// one. Candidates come back best first; confidence ties prefer the
// candidate that extracted more parameters.
func (h *Handler) MatchOperation(req *contract.Request, ops []contract.Operation) []contract.MatchCandidate {
	if req == nil || req.Method == "" || req.Path == "" {
		return nil
	}

	var candidates []contract.MatchCandidate
	for i := range ops {
		op := &ops[i]
		if op.Kind != contract.KindRest {
			continue
		}
		if !strings.EqualFold(op.Method, req.Method) {
			continue
		}

		pathResult := matching.MatchTemplate(op.Path, req.Path)
		if !pathResult.Matched() {
			continue
		}

		confidence := matching.MethodWeight + matching.PathWeight*pathResult.Score
		reasons := []string{fmt.Sprintf("method %s matched", req.Method)}
		if pathResult.Score == matching.ScoreExact {
			reasons = append(reasons, fmt.Sprintf("exact path match %s", op.Path))
		} else {
			reasons = append(reasons, fmt.Sprintf("path template %s matched with %d parameter(s)", op.Path, len(pathResult.Params)))
		}

		params := make(map[string]any, len(pathResult.Params))
		for k, v := range pathResult.Params {
			params[k] = v
		}

		candidates = append(candidates, contract.MatchCandidate{
			Operation:  op,
			Confidence: confidence,
			Reasons:    reasons,
			Metrics: map[string]float64{
				"methodScore": matching.ScoreExact,
				"pathScore":   pathResult.Score,
			},
			Parameters: params,
		})
	}

	contract.SortCandidates(candidates)
	return candidates
}
