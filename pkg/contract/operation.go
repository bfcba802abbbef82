package contract

// OperationKind classifies an abstract spec operation.
type OperationKind string

// Operation kinds.
const (
	KindRest         OperationKind = "rest"
	KindQuery        OperationKind = "query"
	KindMutation     OperationKind = "mutation"
	KindSubscription OperationKind = "subscription"
	KindEvent        OperationKind = "event"
)

// Operation is one abstract action defined by a specification: a REST
// endpoint, a GraphQL root field, or an AsyncAPI channel direction.
// Operations are created once when a spec is parsed and never mutated;
// the operation list for a spec is cached for the spec's lifetime.
type Operation struct {
	// ID is the stable canonical identifier for the operation.
	ID string `json:"id"`
	// Kind classifies the operation.
	Kind OperationKind `json:"kind"`
	// Method is the HTTP verb for REST operations.
	Method string `json:"method,omitempty"`
	// Path is the templated path for REST operations, params as {name}.
	Path string `json:"path,omitempty"`
	// Channel is the templated channel for event operations.
	Channel string `json:"channel,omitempty"`
	// RequestSchema references the request schema, when declared.
	RequestSchema any `json:"requestSchema,omitempty"`
	// ResponseSchema references the response schema, when declared.
	ResponseSchema any `json:"responseSchema,omitempty"`
	// Deprecated marks operations flagged deprecated in the spec.
	Deprecated bool `json:"deprecated,omitempty"`
}
