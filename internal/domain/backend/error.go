package backend

import "errors"

var (
	ErrEmptyCollection  = errors.New("collection is required")
	ErrInvalidOperation = errors.New("invalid operation")
)
