// Package contract defines the transport-agnostic shapes shared by the
// matching engine: canonical requests and responses, spec operations,
// fixtures, match candidates, and the canonical interaction hash.
//
// Everything in this package is a plain value. Requests are constructed
// once per inbound call and never mutated; operations are built once per
// parsed spec and cached for the spec's lifetime; candidates and scores
// are produced fresh for every request.
package contract
