package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session has not been started or has ended.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrCatalogNotFound indicates the puzzle catalog could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrMalformedCatalog marks a catalog whose definitions do not match their variant.
	ErrMalformedCatalog = errors.New("malformed catalog entry")
	// ErrOutOfRange is returned when a catalog index does not exist.
	ErrOutOfRange = errors.New("puzzle index out of range")
	// ErrInvalidNavigation is returned for locked or out-of-range navigation targets.
	ErrInvalidNavigation = errors.New("puzzle is locked or does not exist")
	// ErrVariantMismatch is returned when an edit does not fit the active draft.
	ErrVariantMismatch = errors.New("edit does not match the active puzzle variant")
	// ErrInvalidEdit indicates an edit referencing ids the active puzzle does not have.
	ErrInvalidEdit = errors.New("edit references unknown puzzle entries")
	// ErrNotInProgress is returned for draft operations while a transition is pending or the trail is complete.
	ErrNotInProgress = errors.New("no puzzle attempt in progress")
	// ErrNoTransition is returned by Advance when nothing has been solved.
	ErrNoTransition = errors.New("no transition pending")
)
