package storage

import "errors"

var (
	ErrStorageClosed = errors.New("storage: engine closed")
	ErrInvalidData   = errors.New("storage: invalid data")
	ErrInvalidID     = errors.New("storage: invalid record id")
)
