package entities

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the core. Callers classify with errors.Is.
var (
	// ErrValidation marks input rejected before any external call.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown document or a missing collection.
	ErrNotFound = errors.New("not found")

	// ErrUpstream marks a failed or timed out extraction, embedding, index or model call.
	ErrUpstream = errors.New("upstream failure")

	// ErrNoContext marks a retrieval that produced nothing usable for generation.
	ErrNoContext = errors.New("no usable context")

	// ErrDimensionMismatch marks a vector whose length differs from its collection's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

var (
	ErrDocumentNotFound   = fmt.Errorf("document %w", ErrNotFound)
	ErrCollectionNotFound = fmt.Errorf("collection %w", ErrNotFound)
)

// Validation builds an ErrValidation with a formatted reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream wraps err as an ErrUpstream for the named operation.
// Errors that already carry a core kind are only annotated.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// IsClassified reports whether err already carries one of the core kinds.
func IsClassified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUpstream) ||
		errors.Is(err, ErrNoContext)
}

// IsPermanent reports whether retrying err cannot change the outcome.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNoContext) ||
		errors.Is(err, ErrDimensionMismatch)
}
