package matching

import "strings"

// Result is the outcome of matching a concrete value against a template.
type Result struct {
	// Score is ScoreExact, ScoreTemplate, or ScoreNone.
	Score float64
	// Params holds values extracted from {name} segments.
	Params map[string]string
}

// Matched reports whether the template matched at all.
func (r Result) Matched() bool {
	return r.Score > ScoreNone
}

// MatchTemplate matches a concrete path or channel against a template.
// Templates use {name} for single-segment parameters:
//
//	MatchTemplate("/castles", "/castles")        → exact, no params
//	MatchTemplate("/castles/{id}", "/castles/1") → template, {id: "1"}
//	MatchTemplate("/castles/{id}", "/castles")   → no match
//
// Segment counts must agree; a parameter never spans segments.
func MatchTemplate(template, value string) Result {
	if template == value {
		return Result{Score: ScoreExact}
	}

	if !strings.Contains(template, "{") {
		return Result{Score: ScoreNone}
	}

	templateParts := splitSegments(template)
	valueParts := splitSegments(value)
	if len(templateParts) != len(valueParts) {
		return Result{Score: ScoreNone}
	}

	params := make(map[string]string)
	for i, part := range templateParts {
		if name, ok := paramName(part); ok {
			params[name] = valueParts[i]
			continue
		}
		if part != valueParts[i] {
			return Result{Score: ScoreNone}
		}
	}

	return Result{Score: ScoreTemplate, Params: params}
}

// HasParams reports whether a template declares any {name} segments.
func HasParams(template string) bool {
	for _, part := range splitSegments(template) {
		if _, ok := paramName(part); ok {
			return true
		}
	}
	return false
}

// splitSegments splits on "/" with leading and trailing separators
// trimmed, so "/a/b/" and "a/b" compare equal segment-wise.
func splitSegments(s string) []string {
	return strings.Split(strings.Trim(s, "/"), "/")
}

// paramName returns the name of a {name} segment.
func paramName(segment string) (string, bool) {
	if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") && len(segment) > 2 {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}
