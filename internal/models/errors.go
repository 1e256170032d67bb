package models

import "errors"

// Error kinds shared across packages. Callers match them with errors.Is.
var (
	// ErrInvalidConfiguration covers empty inputs, unknown codecs and
	// out-of-range settings. Nothing has run when it is returned.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrConfigurationDrift means the completed-task log holds tasks the
	// current configuration does not plan.
	ErrConfigurationDrift = errors.New("configuration drift")

	// ErrMalformedEntry is returned for completed-task log lines that
	// cannot be parsed.
	ErrMalformedEntry = errors.New("malformed completed-task entry")

	// ErrTaskFailure wraps the failure of a single task.
	ErrTaskFailure = errors.New("task failed")

	// ErrRunSummaryFailure means a run failed as a whole: too many task
	// failures or none of the remaining tasks succeeded.
	ErrRunSummaryFailure = errors.New("run failed")

	// ErrInternalConsistency means repetitions of one task disagree on
	// values that should be deterministic.
	ErrInternalConsistency = errors.New("internal consistency")
)
