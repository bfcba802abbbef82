// Package asyncapi implements the spec handler for AsyncAPI documents.
// One operation is extracted per channel and direction (publish or
// subscribe); channel templates use the same {param} matching algorithm
// as REST paths, and requests arrive either as explicit event requests
// (channel plus optional event type) or as HTTP-style async requests
// recognized by WebSocket upgrade headers, an SSE Accept header, or
// event-ish path segments.
package asyncapi
