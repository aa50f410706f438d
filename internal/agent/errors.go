package agent

import "errors"

var (
	// ErrModelUnavailable wraps transport failures from the model provider.
	// No step is recorded when it is returned.
	ErrModelUnavailable = errors.New("model call failed")
	// ErrEmptyResponse means the model returned no usable text.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrInvalidDecision means the model text is not a decision object.
	ErrInvalidDecision = errors.New("invalid decision")

	ErrTaskNotFound     = errors.New("task not found")
	ErrTaskBusy         = errors.New("task is already executing a step")
	ErrMaxStepsExceeded = errors.New("task exceeded max steps")
	ErrNothingPending   = errors.New("no pending action")
)
