package graphql

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/cliftonc/entente/pkg/contract"
)

// Confidence components for GraphQL matching.
const (
	baseConfidence  = 0.8
	kindBonus       = 0.15
	fieldNameBonus  = 0.05
	endpointPath    = "/graphql"
	introspectionID = "Query.__schema"
)

// MatchOperation classifies a GraphQL request. The request must target
// the GraphQL endpoint path and carry a query field in its body; the
// query text is parsed and each top-level selected field is matched
// against the extracted operations by id. Malformed query text degrades
// to no candidates, never an error.
func (h *Handler) MatchOperation(req *contract.Request, ops []contract.Operation) []contract.MatchCandidate {
	if req == nil || !isGraphQLRequest(req) {
		return nil
	}

	body := req.BodyMap()
	query, _ := body["query"].(string)
	if query == "" {
		return nil
	}

	doc, err := parser.ParseQuery(&ast.Source{Name: "request", Input: query})
	if err != nil {
		return nil
	}

	operationName, _ := body["operationName"].(string)
	opDef := pickOperation(doc, operationName)
	if opDef == nil {
		return nil
	}

	variables, _ := body["variables"].(map[string]any)
	fields := selectedFields(opDef)

	// Introspection queries short-circuit to a synthetic operation with
	// full confidence.
	if containsField(fields, "__schema") {
		introspection := &contract.Operation{ID: introspectionID, Kind: contract.KindQuery}
		return []contract.MatchCandidate{{
			Operation:  introspection,
			Confidence: 1.0,
			Reasons:    []string{"introspection query"},
			Parameters: matchParameters(variables, fields, operationName, "__schema"),
		}}
	}

	var candidates []contract.MatchCandidate
	for _, field := range fields {
		for i := range ops {
			op := &ops[i]
			if fieldName(op.ID) != field {
				continue
			}

			confidence := baseConfidence
			reasons := []string{fmt.Sprintf("operation %s matched by field %s", op.ID, field)}
			if op.Kind == requestKind(opDef.Operation) {
				confidence += kindBonus
				reasons = append(reasons, fmt.Sprintf("operation kind %s matched", op.Kind))
			}
			confidence += fieldNameBonus
			reasons = append(reasons, "field name matched")

			candidates = append(candidates, contract.MatchCandidate{
				Operation:  op,
				Confidence: confidence,
				Reasons:    reasons,
				Metrics:    map[string]float64{"fieldScore": 1.0},
				Parameters: matchParameters(variables, fields, operationName, field),
			})
		}
	}

	contract.SortCandidates(candidates)
	return candidates
}

// isGraphQLRequest reports whether the request targets the GraphQL
// endpoint path.
func isGraphQLRequest(req *contract.Request) bool {
	return req.Path == endpointPath || strings.HasSuffix(req.Path, endpointPath)
}

// pickOperation selects the operation definition to execute: by name
// when the request names one, otherwise the first definition.
func pickOperation(doc *ast.QueryDocument, operationName string) *ast.OperationDefinition {
	for _, opDef := range doc.Operations {
		if operationName == "" || opDef.Name == operationName {
			return opDef
		}
	}
	return nil
}

// selectedFields lists the top-level field names in the selection set.
func selectedFields(opDef *ast.OperationDefinition) []string {
	var fields []string
	for _, sel := range opDef.SelectionSet {
		if f, ok := sel.(*ast.Field); ok {
			fields = append(fields, f.Name)
		}
	}
	return fields
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// fieldName returns the field part of a "RootType.fieldName" id.
func fieldName(operationID string) string {
	if idx := strings.LastIndex(operationID, "."); idx >= 0 {
		return operationID[idx+1:]
	}
	return operationID
}

// requestKind maps a parsed GraphQL operation to an operation kind.
func requestKind(op ast.Operation) contract.OperationKind {
	switch op {
	case ast.Mutation:
		return contract.KindMutation
	case ast.Subscription:
		return contract.KindSubscription
	default:
		return contract.KindQuery
	}
}

// matchParameters packages the extracted request context: the variables
// object, the selected field list, and the operation name.
func matchParameters(variables map[string]any, fields []string, operationName, field string) map[string]any {
	params := map[string]any{
		"field": field,
	}
	if len(variables) > 0 {
		params["variables"] = variables
	}
	if len(fields) > 0 {
		fieldList := make([]any, len(fields))
		for i, f := range fields {
			fieldList[i] = f
		}
		params["fields"] = fieldList
	}
	if operationName != "" {
		params["operationName"] = operationName
	}
	return params
}
