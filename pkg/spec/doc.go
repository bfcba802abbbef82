// Package spec defines the uniform capability contract that every
// specification format implements, and the registry that detects which
// format a raw spec is and dispatches to the right handler.
//
// The registry is an explicit value constructed at startup and passed to
// the router and transport adapters; there is no package-level mutable
// state. Registering two handlers for the same format is a programmer
// error and fails construction.
package spec
