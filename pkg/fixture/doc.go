// Package fixture ranks and selects stored fixtures for a matched
// operation. Selection is a pure function: identical (operation, pool,
// request) inputs always select the identical fixture, with no randomness
// and no external state — ties fall back to source bias, then priority,
// then fixture ID.
//
// The scorer here is the format-independent default; spec handlers may
// override it with a format-specific refinement (GraphQL ranks fixtures
// by variable exactness first).
package fixture
