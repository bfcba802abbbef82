// Package matching provides the structural template-matching primitives
// shared by the REST path matcher and the AsyncAPI channel matcher:
// segment-wise comparison of concrete paths against templates whose
// {name} segments act as single-segment wildcards, with named parameter
// extraction.
package matching
