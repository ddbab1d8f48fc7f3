package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a workflow action is not allowed
	// from the document's current status
	ErrInvalidTransition = errors.New("invalid workflow transition")
)
