package graphql

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/spec"
)

// rootKinds maps root type roles to operation kinds.
var rootKinds = map[string]contract.OperationKind{
	"Query":        contract.KindQuery,
	"Mutation":     contract.KindMutation,
	"Subscription": contract.KindSubscription,
}

// Handler implements spec.Handler for GraphQL schemas.
type Handler struct{}

// New creates a GraphQL spec handler.
func New() *Handler {
	return &Handler{}
}

// Format returns the GraphQL spec type.
func (h *Handler) Format() contract.SpecType {
	return contract.SpecTypeGraphQL
}

// CanHandle recognizes three encodings: SDL text that parses as a
// schema, an introspection result, and a wrapper object carrying a
// schema string. It never panics.
func (h *Handler) CanHandle(raw []byte) bool {
	if sdl, ok := wrapperSchema(raw); ok {
		return schemaHasRootFields(sdl)
	}
	if _, ok := introspectionSchema(raw); ok {
		return true
	}
	return schemaHasRootFields(string(raw))
}

// schemaHasRootFields reports whether sdl parses as a schema that
// declares at least one root field. Schemas without root fields are not
// claimed, so empty or unrelated text falls through to other handlers.
func schemaHasRootFields(sdl string) bool {
	schema, err := ParseSchema(sdl)
	if err != nil {
		return false
	}
	return len(schema.queries)+len(schema.mutations)+len(schema.subscriptions) > 0
}

// ParseSpec parses the raw spec into a cached operation list: one
// operation per root field, id "RootType.fieldName".
func (h *Handler) ParseSpec(raw []byte) (*spec.ParsedSpec, error) {
	if sdl, ok := wrapperSchema(raw); ok {
		return h.parseSDL(sdl)
	}
	if intro, ok := introspectionSchema(raw); ok {
		return h.parseIntrospection(intro)
	}
	return h.parseSDL(string(raw))
}

func (h *Handler) parseSDL(sdl string) (*spec.ParsedSpec, error) {
	schema, err := ParseSchema(sdl)
	if err != nil {
		return nil, &spec.SpecFormatError{Format: h.Format(), Err: err}
	}

	var ops []contract.Operation
	ops = append(ops, fieldOperations("Query", schema.queries)...)
	ops = append(ops, fieldOperations("Mutation", schema.mutations)...)
	ops = append(ops, fieldOperations("Subscription", schema.subscriptions)...)
	if len(ops) == 0 {
		return nil, &spec.SpecFormatError{Format: h.Format(), Err: fmt.Errorf("schema declares no root fields")}
	}

	return &spec.ParsedSpec{
		Format:     h.Format(),
		Document:   schema,
		Operations: ops,
	}, nil
}

// fieldOperations builds operations for one root type, sorted by field
// name so the cached list is deterministic.
func fieldOperations[F any](rootType string, fields map[string]F) []contract.Operation {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	ops := make([]contract.Operation, 0, len(names))
	for _, name := range names {
		ops = append(ops, contract.Operation{
			ID:   fmt.Sprintf("%s.%s", rootType, name),
			Kind: rootKinds[rootType],
		})
	}
	return ops
}

// wrapperSchema unwraps {"schema": "<SDL>"} objects.
func wrapperSchema(raw []byte) (string, bool) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", false
	}
	sdl, ok := doc["schema"].(string)
	return sdl, ok && sdl != ""
}

// introspectionSchema unwraps an introspection result: either the
// standard {"data": {"__schema": ...}} envelope or a bare __schema.
func introspectionSchema(raw []byte) (map[string]any, bool) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	if data, ok := doc["data"].(map[string]any); ok {
		doc = data
	}
	schema, ok := doc["__schema"].(map[string]any)
	return schema, ok
}

// parseIntrospection extracts operations from an introspection result by
// walking the declared root types and their fields.
func (h *Handler) parseIntrospection(schema map[string]any) (*spec.ParsedSpec, error) {
	typesByName := map[string]map[string]any{}
	if types, ok := schema["types"].([]any); ok {
		for _, t := range types {
			if tm, ok := t.(map[string]any); ok {
				if name, ok := tm["name"].(string); ok {
					typesByName[name] = tm
				}
			}
		}
	}

	var ops []contract.Operation
	for _, root := range []struct {
		key      string
		rootType string
	}{
		{"queryType", "Query"},
		{"mutationType", "Mutation"},
		{"subscriptionType", "Subscription"},
	} {
		ref, ok := schema[root.key].(map[string]any)
		if !ok {
			continue
		}
		typeName, _ := ref["name"].(string)
		typeDef, ok := typesByName[typeName]
		if !ok {
			continue
		}
		fields, _ := typeDef["fields"].([]any)
		names := make([]string, 0, len(fields))
		for _, f := range fields {
			fm, ok := f.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := fm["name"].(string); ok && !isIntrospectionField(name) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			ops = append(ops, contract.Operation{
				ID:   fmt.Sprintf("%s.%s", root.rootType, name),
				Kind: rootKinds[root.rootType],
			})
		}
	}

	if len(ops) == 0 {
		return nil, &spec.SpecFormatError{Format: h.Format(), Err: fmt.Errorf("introspection result declares no root fields")}
	}

	return &spec.ParsedSpec{
		Format:     h.Format(),
		Document:   schema,
		Operations: ops,
	}, nil
}

// FixtureScorer returns the variable-exactness scorer; GraphQL is the
// one format that refines the default ranking.
func (h *Handler) FixtureScorer() spec.FixtureScorer {
	return &VariableScorer{Format: h.Format()}
}
