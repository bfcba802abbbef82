// Package graphql implements the spec handler for GraphQL schemas. It
// accepts SDL text, introspection results, and wrapper objects carrying a
// schema string, and extracts one operation per field on the Query,
// Mutation, and Subscription root types.
//
// GraphQL is the one format with its own fixture scorer: fixtures whose
// stored variables exactly equal the request's variables outrank partial
// overlaps, which outrank the rest, before source bias and priority are
// considered.
package graphql
