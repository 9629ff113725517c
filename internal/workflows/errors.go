package workflows

import "errors"

var (
	// ErrRuntimeNotInitialized is returned when DBOS is not available.
	ErrRuntimeNotInitialized = errors.New("DBOS runtime not initialized")

	// ErrRunnerNotConfigured is returned when no pipeline runner is wired.
	ErrRunnerNotConfigured = errors.New("pipeline runner not configured")

	// ErrRunNotFound is returned when a run id is unknown to DBOS.
	ErrRunNotFound = errors.New("run not found")
)
