package model

import "errors"

var (
	// ErrInvalidRange reports a malformed or empty date or content range.
	ErrInvalidRange = errors.New("invalid range")
	// ErrInvalidContent reports an inverted or non-positive content range.
	ErrInvalidContent = errors.New("invalid content")
	// ErrInvalidTime reports a malformed wall-clock time or time range.
	ErrInvalidTime = errors.New("invalid time")
	// ErrInvalidOptions reports a scheduler option that failed validation.
	ErrInvalidOptions = errors.New("invalid options")
)
