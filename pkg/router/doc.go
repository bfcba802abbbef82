// Package router orchestrates one request through the engine: classify
// it against the loaded spec's operations, rank the fixture pool for the
// winning candidate, and produce the mock response. The MatchOutcome it
// returns is the sole source of operation identity for adapters and the
// interceptor.
package router
