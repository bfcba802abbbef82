package graphql

import (
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Schema is a parsed GraphQL schema with the root fields indexed by name.
type Schema struct {
	ast           *ast.Schema
	source        string
	queries       map[string]*ast.FieldDefinition
	mutations     map[string]*ast.FieldDefinition
	subscriptions map[string]*ast.FieldDefinition
}

// ParseSchema parses a GraphQL SDL string.
func ParseSchema(sdl string) (*Schema, error) {
	source := &ast.Source{
		Name:  "schema",
		Input: sdl,
	}

	schema, err := gqlparser.LoadSchema(source)
	if err != nil {
		return nil, fmt.Errorf("parse GraphQL schema: %w", err)
	}

	return newSchema(schema, sdl), nil
}

func newSchema(schema *ast.Schema, source string) *Schema {
	s := &Schema{
		ast:           schema,
		source:        source,
		queries:       make(map[string]*ast.FieldDefinition),
		mutations:     make(map[string]*ast.FieldDefinition),
		subscriptions: make(map[string]*ast.FieldDefinition),
	}

	if schema.Query != nil {
		for _, field := range schema.Query.Fields {
			if !isIntrospectionField(field.Name) {
				s.queries[field.Name] = field
			}
		}
	}
	if schema.Mutation != nil {
		for _, field := range schema.Mutation.Fields {
			s.mutations[field.Name] = field
		}
	}
	if schema.Subscription != nil {
		for _, field := range schema.Subscription.Fields {
			s.subscriptions[field.Name] = field
		}
	}

	return s
}

// isIntrospectionField returns true for built-in __ fields.
func isIntrospectionField(name string) bool {
	return len(name) >= 2 && name[0] == '_' && name[1] == '_'
}

// AST returns the underlying gqlparser schema.
func (s *Schema) AST() *ast.Schema {
	return s.ast
}

// Source returns the original SDL source string.
func (s *Schema) Source() string {
	return s.source
}
