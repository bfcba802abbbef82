package contract

// Response is the canonical form of a mock or replayed response. It is
// produced once per match and translated to wire form by the transport
// adapter that owns the connection.
type Response struct {
	// Status is the HTTP status code. Event-style responses use 200 with
	// Success set.
	Status int `json:"status"`
	// Success reports delivery for event-style formats.
	Success bool `json:"success,omitempty"`
	// Headers holds response headers keyed by lower-cased name.
	Headers map[string]string `json:"headers,omitempty"`
	// Body is the response body value; marshalled by the adapter.
	Body any `json:"body,omitempty"`
	// EventID identifies the synthesized or replayed event, async only.
	EventID string `json:"eventId,omitempty"`
	// Timestamp is the event timestamp in RFC 3339, async only.
	Timestamp string `json:"timestamp,omitempty"`
}

// JSONResponse builds a response with a JSON content type header.
func JSONResponse(status int, body any) *Response {
	return &Response{
		Status:  status,
		Headers: map[string]string{"content-type": "application/json"},
		Body:    body,
	}
}
