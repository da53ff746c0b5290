package schema

import "errors"

var (
	ErrNoSuchClass          = errors.New("class does not exist")
	ErrNoSuchProperty       = errors.New("property does not exist")
	ErrConflictPropertyType = errors.New("conflicting property type")
	ErrDuplicateClass       = errors.New("class already exists")
	ErrDuplicateProperty    = errors.New("property already exists")
	ErrClassTypeMismatch    = errors.New("class type mismatch")
	ErrInvalidName          = errors.New("invalid name")
)
