package contract

import "encoding/json"

// FixtureStatus is the review state of a stored fixture.
type FixtureStatus string

// Fixture statuses.
const (
	FixtureDraft    FixtureStatus = "draft"
	FixtureApproved FixtureStatus = "approved"
	FixtureRejected FixtureStatus = "rejected"
)

// FixtureSource identifies where a fixture originated. Sources rank
// provider > manual > consumer when fixtures otherwise tie.
type FixtureSource string

// Fixture sources.
const (
	SourceProvider FixtureSource = "provider"
	SourceManual   FixtureSource = "manual"
	SourceConsumer FixtureSource = "consumer"
)

// SourceRank returns the bias rank of a fixture source. Higher ranks
// outrank lower ones; unknown sources rank 0.
func SourceRank(s FixtureSource) int {
	switch s {
	case SourceProvider:
		return 3
	case SourceManual:
		return 2
	case SourceConsumer:
		return 1
	default:
		return 0
	}
}

// FixtureData is the stored request/response payload of a fixture.
type FixtureData struct {
	Request  map[string]any `json:"request,omitempty" yaml:"request,omitempty"`
	Response map[string]any `json:"response,omitempty" yaml:"response,omitempty"`
}

// Provenance records how a fixture came to exist.
type Provenance struct {
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Interaction string `json:"interactionId,omitempty" yaml:"interactionId,omitempty"`
	Timestamp   string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Fixture is a stored request/response pair usable as a deterministic
// substitute for a live call. Fixtures reach the engine read-only and
// already filtered to usable entries; the engine only ranks and selects.
type Fixture struct {
	ID        string        `json:"id" yaml:"id"`
	Service   string        `json:"service,omitempty" yaml:"service,omitempty"`
	Operation string        `json:"operation" yaml:"operation"`
	SpecType  SpecType      `json:"specType" yaml:"specType"`
	Status    FixtureStatus `json:"status" yaml:"status"`
	Source    FixtureSource `json:"source" yaml:"source"`
	Priority  int           `json:"priority" yaml:"priority"`
	// Local marks fixtures supplied directly by test code; they are
	// always eligible regardless of status.
	Local       bool        `json:"local,omitempty" yaml:"local,omitempty"`
	Data        FixtureData `json:"data" yaml:"data"`
	CreatedFrom Provenance  `json:"createdFrom,omitempty" yaml:"createdFrom,omitempty"`
	Hash        string      `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// ResponseStatus returns the stored response status code, or fallback
// when the fixture does not carry one.
func (f *Fixture) ResponseStatus(fallback int) int {
	if v, ok := f.Data.Response["status"]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return fallback
}

// ResponseBody returns the stored response body, or nil.
func (f *Fixture) ResponseBody() any {
	return f.Data.Response["body"]
}

// ResponseHeaders returns the stored response headers, or nil.
func (f *Fixture) ResponseHeaders() map[string]string {
	raw, ok := f.Data.Response["headers"].(map[string]any)
	if !ok {
		return nil
	}
	headers := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	return headers
}

// RequestBody returns the stored request body, or nil.
func (f *Fixture) RequestBody() any {
	return f.Data.Request["body"]
}

// RequestVariables returns the stored GraphQL variables, or nil.
func (f *Fixture) RequestVariables() map[string]any {
	vars, _ := f.Data.Request["variables"].(map[string]any)
	return vars
}
