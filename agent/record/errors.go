package record

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrReferential = errors.New("referential integrity violation")
	ErrValidation  = errors.New("validation failed")
)
