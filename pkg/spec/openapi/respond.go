package openapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/fixture"
)

// GenerateResponse replays the best fixture for the operation or
// synthesizes a plausible response from the request shape.
//
// Mutation-style requests first look for a fixture whose stored request
// body equals the incoming one byte-for-byte after canonical
// serialization; only then does the selection (or the highest-ranked
// fixture) apply.
func (h *Handler) GenerateResponse(op *contract.Operation, fixtures []*contract.Fixture, req *contract.Request, cand *contract.MatchCandidate, selected *contract.Fixture) *contract.Response {
	pool := fixture.Filter(fixtures, op.ID, h.Format())

	if isMutation(req.Method) {
		if f := exactBodyMatch(pool, req.Body); f != nil {
			return replay(f, defaultStatus(req.Method))
		}
	}
	if selected != nil {
		return replay(selected, defaultStatus(req.Method))
	}
	if len(pool) > 0 {
		scores := fixture.NewScorer(h.Format()).ScoreFixtures(pool, req, op, cand)
		if best, ok := fixture.Select(pool, scores); ok {
			return replay(best, defaultStatus(req.Method))
		}
	}

	return synthesize(req, cand)
}

// isMutation reports whether the verb can carry a distinguishing body.
func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// exactBodyMatch returns the first fixture (in deterministic pool order)
// whose stored request body serializes identically to the incoming body.
func exactBodyMatch(pool []*contract.Fixture, body any) *contract.Fixture {
	if body == nil {
		return nil
	}
	want, err := canonicalJSON(body)
	if err != nil {
		return nil
	}
	for _, f := range pool {
		stored := f.RequestBody()
		if stored == nil {
			continue
		}
		got, err := canonicalJSON(stored)
		if err != nil {
			continue
		}
		if want == got {
			return f
		}
	}
	return nil
}

// canonicalJSON round-trips a value through encoding/json, which writes
// map keys in sorted order, so equal values compare equal as strings.
func canonicalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", err
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// replay converts a fixture's stored response into a canonical response.
func replay(f *contract.Fixture, fallbackStatus int) *contract.Response {
	resp := &contract.Response{
		Status:  f.ResponseStatus(fallbackStatus),
		Headers: f.ResponseHeaders(),
		Body:    f.ResponseBody(),
	}
	if resp.Headers == nil {
		resp.Headers = map[string]string{"content-type": "application/json"}
	}
	return resp
}

// defaultStatus is the replay fallback when a fixture stores no status.
func defaultStatus(method string) int {
	switch method {
	case http.MethodPost:
		return http.StatusCreated
	case http.MethodDelete:
		return http.StatusNoContent
	default:
		return http.StatusOK
	}
}

// synthesize fabricates a response when no fixture is available:
//
//	POST           → 201 with a generated id merged over the body
//	DELETE         → 204 empty
//	GET with param → single object echoing the extracted parameters
//	GET without    → a one-element list
//	PUT/PATCH      → an updated object echoing the parameters
func synthesize(req *contract.Request, cand *contract.MatchCandidate) *contract.Response {
	var params map[string]any
	if cand != nil {
		params = cand.Parameters
	}

	switch req.Method {
	case http.MethodPost:
		body := map[string]any{"id": uuid.NewString()}
		for k, v := range req.BodyMap() {
			body[k] = v
		}
		return contract.JSONResponse(http.StatusCreated, body)

	case http.MethodDelete:
		return &contract.Response{Status: http.StatusNoContent}

	case http.MethodPut, http.MethodPatch:
		body := map[string]any{"updated": true}
		for k, v := range req.BodyMap() {
			body[k] = v
		}
		for k, v := range params {
			body[k] = v
		}
		return contract.JSONResponse(http.StatusOK, body)

	default: // GET and anything GET-like
		if len(params) > 0 {
			body := map[string]any{"name": "Mock Resource"}
			for k, v := range params {
				body[k] = v
			}
			return contract.JSONResponse(http.StatusOK, body)
		}
		item := map[string]any{"id": "1", "name": "Mock Resource"}
		return contract.JSONResponse(http.StatusOK, []any{item})
	}
}
