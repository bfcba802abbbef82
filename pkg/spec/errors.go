package spec

import (
	"errors"
	"fmt"

	"github.com/cliftonc/entente/pkg/contract"
)

// ErrNoHandler indicates no registered handler recognizes a raw spec.
// Callers decide whether that is fatal.
var ErrNoHandler = errors.New("no handler for spec format")

// SpecFormatError reports a raw spec that a handler claimed but could not
// parse. It is fatal to spec loading and surfaced to the caller verbatim.
type SpecFormatError struct {
	Format contract.SpecType
	Err    error
}

func (e *SpecFormatError) Error() string {
	return fmt.Sprintf("malformed %s spec: %v", e.Format, e.Err)
}

func (e *SpecFormatError) Unwrap() error {
	return e.Err
}

// DuplicateHandlerError reports two handlers registered for one format.
// This is a startup programmer error, never recoverable at runtime.
type DuplicateHandlerError struct {
	Format contract.SpecType
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("handler already registered for format %q", e.Format)
}
