package contract

// Entity is a domain object extracted from a fixture payload, consumed by
// the external normalization pipeline.
type Entity struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Data map[string]any `json:"data,omitempty"`
}

// Relationship links two extracted entities.
type Relationship struct {
	FromType string `json:"fromType"`
	FromID   string `json:"fromId"`
	ToType   string `json:"toType"`
	ToID     string `json:"toId"`
	Kind     string `json:"kind,omitempty"`
}

// EntityGraph is the result of extracting entities from one fixture.
type EntityGraph struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}
