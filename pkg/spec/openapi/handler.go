package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/spec"
)

// extOperationID is the vendor extension a mocking proxy attaches to pin
// an operation id. It takes precedence over the declared operationId.
const extOperationID = "x-operation-id"

// Handler implements spec.Handler for OpenAPI / Swagger documents.
type Handler struct{}

// New creates an OpenAPI spec handler.
func New() *Handler {
	return &Handler{}
}

// Format returns the OpenAPI spec type.
func (h *Handler) Format() contract.SpecType {
	return contract.SpecTypeOpenAPI
}

// CanHandle reports whether raw carries an "openapi" or "swagger" field,
// in JSON or YAML form. It never panics.
func (h *Handler) CanHandle(raw []byte) bool {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return false
		}
	}
	if _, ok := doc["openapi"]; ok {
		return true
	}
	_, ok := doc["swagger"]
	return ok
}

// ParseSpec loads the document with kin-openapi and extracts one
// operation per (path, method) pair. The operation list is cached on the
// returned ParsedSpec for the spec's lifetime.
func (h *Handler) ParseSpec(raw []byte) (*spec.ParsedSpec, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, &spec.SpecFormatError{Format: h.Format(), Err: err}
	}
	if doc.Paths == nil {
		return nil, &spec.SpecFormatError{Format: h.Format(), Err: fmt.Errorf("document has no paths")}
	}

	ops := extractOperations(doc)
	return &spec.ParsedSpec{
		Format:     h.Format(),
		Document:   doc,
		Operations: ops,
	}, nil
}

// extractOperations builds the canonical operation list, ordered by path
// then method so the cache is deterministic.
func extractOperations(doc *openapi3.T) []contract.Operation {
	paths := doc.Paths.Map()
	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	var ops []contract.Operation
	for _, path := range pathKeys {
		item := paths[path]
		if item == nil {
			continue
		}
		methods := item.Operations()
		methodKeys := make([]string, 0, len(methods))
		for m := range methods {
			methodKeys = append(methodKeys, m)
		}
		sort.Strings(methodKeys)

		for _, method := range methodKeys {
			op := methods[method]
			ops = append(ops, contract.Operation{
				ID:             operationID(method, path, op),
				Kind:           contract.KindRest,
				Method:         strings.ToUpper(method),
				Path:           path,
				RequestSchema:  requestSchema(op),
				ResponseSchema: responseSchema(op),
				Deprecated:     op.Deprecated,
			})
		}
	}
	return ops
}

// operationID resolves the canonical id: the x-operation-id extension
// first, then the declared operationId, then "METHOD.path".
func operationID(method, path string, op *openapi3.Operation) string {
	if op.Extensions != nil {
		if v, ok := op.Extensions[extOperationID].(string); ok && v != "" {
			return v
		}
	}
	if op.OperationID != "" {
		return op.OperationID
	}
	return fmt.Sprintf("%s.%s", strings.ToUpper(method), path)
}

// requestSchema returns the JSON request body schema ref, when declared.
func requestSchema(op *openapi3.Operation) any {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema
}

// responseSchema returns the schema ref of the first 2xx JSON response.
func responseSchema(op *openapi3.Operation) any {
	if op.Responses == nil {
		return nil
	}
	for _, status := range []string{"200", "201", "202", "204"} {
		ref := op.Responses.Value(status)
		if ref == nil || ref.Value == nil {
			continue
		}
		media := ref.Value.Content.Get("application/json")
		if media != nil && media.Schema != nil {
			return media.Schema
		}
	}
	return nil
}

// FixtureScorer returns nil: REST fixtures use the default scorer.
func (h *Handler) FixtureScorer() spec.FixtureScorer {
	return nil
}
