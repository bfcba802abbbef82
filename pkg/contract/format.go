package contract

// SpecType identifies a supported API specification format.
type SpecType string

// Supported specification formats.
const (
	SpecTypeUnknown  SpecType = ""
	SpecTypeOpenAPI  SpecType = "openapi"
	SpecTypeGraphQL  SpecType = "graphql"
	SpecTypeAsyncAPI SpecType = "asyncapi"
)

// String returns the string representation of the spec type.
func (t SpecType) String() string {
	return string(t)
}

// IsValid returns true if the spec type is a known format.
func (t SpecType) IsValid() bool {
	switch t {
	case SpecTypeOpenAPI, SpecTypeGraphQL, SpecTypeAsyncAPI:
		return true
	default:
		return false
	}
}
