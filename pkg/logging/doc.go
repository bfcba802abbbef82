// Package logging configures structured logging for the engine and its
// adapters. It wraps log/slog: components accept a *slog.Logger in their
// constructor and fall back to logging.Nop() when none is given.
package logging
