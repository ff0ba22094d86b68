package ingest

import "errors"

// Sentinel errors returned by the registry and the transition functions.
// Callers match them with errors.Is; the API layer maps them to HTTP codes.
var (
	// ErrInvalidInput rejects malformed creation requests (empty username
	// list, filter ranges out of bounds) before they reach the scheduler.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the job id is unknown to the registry.
	ErrNotFound = errors.New("job not found")

	// ErrAlreadyTerminal rejects mutations of a finished job.
	ErrAlreadyTerminal = errors.New("job already terminal")

	// ErrInvalidTransition marks a violation of the fixed step ordering or
	// of the job state machine.
	ErrInvalidTransition = errors.New("invalid transition")
)
