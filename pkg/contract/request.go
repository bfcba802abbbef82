package contract

import "strings"

// Request is the canonical, transport-agnostic form of an inbound call.
// Header keys are lower-cased at construction. A Request is built once
// per call and must not be mutated afterwards.
type Request struct {
	// Method is the HTTP verb, upper-cased. Empty for pure event requests.
	Method string `json:"method,omitempty"`
	// Path is the request path (no query string).
	Path string `json:"path,omitempty"`
	// Headers holds header values keyed by lower-cased name.
	Headers map[string]string `json:"headers,omitempty"`
	// Query holds query parameters keyed by name.
	Query map[string]string `json:"query,omitempty"`
	// Body is the parsed request body, nil when absent.
	Body any `json:"body,omitempty"`
	// Channel is the event channel for async-style requests.
	Channel string `json:"channel,omitempty"`
	// EventType is the event type hint for async-style requests.
	EventType string `json:"eventType,omitempty"`
}

// NewRequest builds a canonical request, normalizing the method to upper
// case and header keys to lower case.
func NewRequest(method, path string, headers map[string]string, query map[string]string, body any) *Request {
	req := &Request{
		Method: strings.ToUpper(method),
		Path:   path,
		Query:  query,
		Body:   body,
	}
	if len(headers) > 0 {
		req.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			req.Headers[strings.ToLower(k)] = v
		}
	}
	return req
}

// NewEventRequest builds a canonical request for an explicit event call
// on a channel, as produced by the WebSocket and SSE adapters.
func NewEventRequest(channel, eventType string, body any) *Request {
	return &Request{
		Channel:   channel,
		EventType: eventType,
		Body:      body,
	}
}

// Header returns a header value by name (case-insensitive), or "".
func (r *Request) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[strings.ToLower(name)]
}

// BodyMap returns the parsed body as an object, or nil if the body is
// absent or not an object.
func (r *Request) BodyMap() map[string]any {
	m, _ := r.Body.(map[string]any)
	return m
}
