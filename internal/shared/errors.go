package shared

import "errors"

var (
	// ErrActorRequired indicates a mutating request without an actor id.
	ErrActorRequired = errors.New("actor id required")
	// ErrInvalidActor indicates a malformed actor header.
	ErrInvalidActor = errors.New("invalid actor id")
)
