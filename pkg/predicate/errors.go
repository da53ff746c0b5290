package predicate

import "errors"

var (
	// ErrInvalidExpression is returned when an expression value is
	// structurally incomplete, such as a zero-value leaf or a binary node
	// without an operator.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrInternal reports a broken internal invariant, for example a type
	// map that was not resolved for every referenced property.
	ErrInternal = errors.New("internal error")
)
