package compare

import "errors"

var (
	// ErrInvalidComparator is returned when a comparator is not defined for
	// the property type it is applied to, or receives the wrong number of
	// operands.
	ErrInvalidComparator = errors.New("invalid comparator for property type")

	// ErrInvalidPropertyType is returned when the property type is undefined
	// or cannot be resolved.
	ErrInvalidPropertyType = errors.New("invalid property type")

	// ErrInvalidPattern is returned when a LIKE or REGEX operand does not
	// compile.
	ErrInvalidPattern = errors.New("invalid pattern")
)
