package record

import "errors"

var (
	// ErrRecordNotFound is returned by point lookups for a missing record.
	ErrRecordNotFound = errors.New("record not found")

	// ErrVertexNotFound is returned when a traversal starts from, or an
	// adjacency lookup names, a vertex that does not exist.
	ErrVertexNotFound = errors.New("vertex does not exist")

	// ErrMalformedRecord is returned when a stored payload cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")
)
