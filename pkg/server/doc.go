// Package server exposes the routing engine over HTTP, WebSocket, and
// Server-Sent Events. The HTTP handler sniffs each request: WebSocket
// upgrades and text/event-stream Accepts go to the event adapters,
// everything else is answered as a plain mock response. Non-matched
// requests get the transport's negative answer (404, error frame), never
// a fabricated success.
package server
