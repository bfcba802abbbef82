package matching

// Score constants for structural template matching. Values are
// confidences in [0,1]; exact literal matches outrank parameterized ones.
const (
	// ScoreExact is the score for an exact literal match.
	ScoreExact = 1.0

	// ScoreTemplate is the score for a match through {name} segments.
	ScoreTemplate = 0.9

	// ScoreNone means the template did not match.
	ScoreNone = 0.0
)

// Weights for combining REST sub-scores into a candidate confidence.
const (
	// MethodWeight is the share of the confidence carried by the verb.
	MethodWeight = 0.3

	// PathWeight is the share of the confidence carried by the path.
	PathWeight = 0.7
)
