package entity

import "errors"

// Entity domain errors
var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrTypeNotAllowed = errors.New("entity type is not an allowed attendance target")
)
