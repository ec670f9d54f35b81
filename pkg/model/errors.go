package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrInvalidOperation is returned when a long-term memory write does not match the
	// category's container type or the requested operation is unknown.
	ErrInvalidOperation = goerr.New("invalid memory operation")

	// ErrMalformedInput is returned for inputs that cannot start a research run.
	ErrMalformedInput = goerr.New("malformed input")

	// ErrExternalExecution wraps failures of the agent execution collaborator.
	ErrExternalExecution = goerr.New("external execution failure")

	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = goerr.New("not found")

	// ErrUnknownValueKind is returned when decoding a memory value with an unregistered kind.
	ErrUnknownValueKind = goerr.New("unknown memory value kind")
)
