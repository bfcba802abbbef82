// Package interceptor is a passive reverse proxy for contract capture.
// It forwards every request to the real upstream unchanged, tags the
// exchange with the operation the router recognizes, and hands the
// observed request/response pair to the recorder. It never answers from
// fixtures and never fabricates a response.
package interceptor
