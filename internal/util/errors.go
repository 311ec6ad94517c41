package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required row or resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidRecord indicates a scraped record is unusable (e.g. empty title)
	ErrInvalidRecord = errors.New("invalid record")

	// ErrAmbiguous indicates a match decision that cannot be made safely
	// (fuzzy tie within the configured margin, or duplicate external ids)
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrConflict indicates a uniqueness conflict that could not be
	// resolved by re-reading the winning row
	ErrConflict = errors.New("uniqueness conflict")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
