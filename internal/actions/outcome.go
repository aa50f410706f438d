package actions

import (
	"github.com/google/uuid"
)

// Status is the lifecycle state reported by an action invocation.
type Status string

const (
	StatusSuccess       Status = "SUCCESS"
	StatusFailure       Status = "FAILURE"
	StatusAwaitingInput Status = "AWAITING_INPUT"
	StatusInProgress    Status = "IN_PROGRESS"
)

// Outcome is the result of executing one invocation. Construct it with
// Success, Failure, Awaiting, InProgress or Noop; it is not changed afterwards.
type Outcome struct {
	Status    Status            `json:"status,omitempty"`
	ID        string            `json:"actionId"`
	Error     string            `json:"error,omitempty"`
	Result    any               `json:"result,omitempty"`
	Summary   string            `json:"summary"`
	StateData map[string]string `json:"stateData,omitempty"`
	Documents []Document        `json:"-"`
}

// IsCompleted reports whether the action finished this turn.
func (o Outcome) IsCompleted() bool {
	return o.Status == StatusSuccess || o.Status == StatusFailure
}

// NeedsContinuation reports whether the action expects to be resumed.
func (o Outcome) NeedsContinuation() bool {
	return o.Status == StatusAwaitingInput || o.Status == StatusInProgress
}

func Success(result any, summary string) Outcome {
	return Outcome{Status: StatusSuccess, ID: uuid.NewString(), Result: result, Summary: summary}
}

// Failure builds a FAILURE outcome. A nil err falls back to the summary so
// that a failed outcome always carries an error text.
func Failure(err error, summary string) Outcome {
	msg := summary
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "action failed"
	}
	return Outcome{Status: StatusFailure, ID: uuid.NewString(), Error: msg, Summary: summary}
}

func Awaiting(result any, summary string, state map[string]string) Outcome {
	return Outcome{Status: StatusAwaitingInput, ID: uuid.NewString(), Result: result, Summary: summary, StateData: copyState(state)}
}

func InProgress(result any, summary string, state map[string]string) Outcome {
	return Outcome{Status: StatusInProgress, ID: uuid.NewString(), Result: result, Summary: summary, StateData: copyState(state)}
}

// Noop is returned when no action was chosen for a turn. It carries no status.
func Noop(summary string) Outcome {
	return Outcome{ID: uuid.NewString(), Summary: summary}
}

// WithID returns a copy of the outcome tracked under id. Continuations use it
// to keep reporting against the invocation they resume.
func (o Outcome) WithID(id string) Outcome {
	if id != "" {
		o.ID = id
	}
	return o
}

// WithDocuments returns a copy of the outcome carrying the given artifacts.
func (o Outcome) WithDocuments(docs ...Document) Outcome {
	o.Documents = append(append([]Document(nil), o.Documents...), docs...)
	return o
}

func copyState(state map[string]string) map[string]string {
	if len(state) == 0 {
		return nil
	}
	out := make(map[string]string, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
