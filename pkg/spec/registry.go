package spec

import (
	"github.com/cliftonc/entente/pkg/contract"
)

// Registry holds one handler per spec format and answers which format a
// raw spec is. Detection tries handlers in registration order and stops
// at the first CanHandle.
type Registry struct {
	handlers []Handler
	byFormat map[contract.SpecType]Handler
}

// NewRegistry builds a registry over the given handlers. It fails with a
// *DuplicateHandlerError if two handlers claim the same format.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{
		byFormat: make(map[contract.SpecType]Handler, len(handlers)),
	}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a handler. Duplicate formats fail with a
// *DuplicateHandlerError.
func (r *Registry) Register(h Handler) error {
	format := h.Format()
	if _, exists := r.byFormat[format]; exists {
		return &DuplicateHandlerError{Format: format}
	}
	r.byFormat[format] = h
	r.handlers = append(r.handlers, h)
	return nil
}

// Handler returns the handler for a format.
func (r *Registry) Handler(format contract.SpecType) (Handler, bool) {
	h, ok := r.byFormat[format]
	return h, ok
}

// DetectType returns the format of the first registered handler that
// recognizes raw, or SpecTypeUnknown when none does.
func (r *Registry) DetectType(raw []byte) (contract.SpecType, bool) {
	for _, h := range r.handlers {
		if h.CanHandle(raw) {
			return h.Format(), true
		}
	}
	return contract.SpecTypeUnknown, false
}

// ParseSpec detects the format of raw and delegates to its handler.
// Unrecognized input fails with ErrNoHandler; recognized but malformed
// input fails with the handler's *SpecFormatError.
func (r *Registry) ParseSpec(raw []byte) (*ParsedSpec, error) {
	for _, h := range r.handlers {
		if h.CanHandle(raw) {
			return h.ParseSpec(raw)
		}
	}
	return nil, ErrNoHandler
}
