package engine

import (
	"errors"

	"pump-trader/internal/config"
)

// Error taxonomy. Every error the engine logs or returns wraps exactly one of these.
var (
	// ErrTransport covers feed, sampler and oracle failures. The candidate or tick is skipped.
	ErrTransport = errors.New("transport error")

	// ErrExecution covers order failures. Entries are abandoned, exits retried on the next tick.
	ErrExecution = errors.New("execution error")

	// ErrValidation covers malformed candidates and fills.
	ErrValidation = errors.New("validation error")

	// ErrPersistence covers snapshot and trade log failures. Never fatal.
	ErrPersistence = errors.New("persistence error")

	// ErrConfiguration covers invalid settings, reported before any loop starts.
	ErrConfiguration = config.ErrConfiguration

	// ErrInitialization covers collaborators that cannot be started.
	ErrInitialization = errors.New("initialization error")
)
