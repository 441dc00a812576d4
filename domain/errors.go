package domain

import "errors"

var (
	ErrEmptyUsername   = errors.New("username is required")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidFilter   = errors.New("invalid filter")
)
