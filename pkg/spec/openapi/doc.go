// Package openapi implements the spec handler for OpenAPI 3.x and
// Swagger 2.0 documents. Parsing is delegated to kin-openapi; matching
// converts {name} path segments to single-segment wildcards and weighs
// the verb at 0.3 and the path at 0.7 of the candidate confidence.
package openapi
