package agent

import (
	"github.com/rahul/taskpilot/internal/actions"
)

// Invocation is the action the model chose for one step.
type Invocation struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// Decision is the structured answer expected from the model.
type Decision struct {
	Action    *Invocation `json:"action"`
	IsFinal   bool        `json:"is_final"`
	Reasoning string      `json:"reasoning"`
}

// Step records one full iteration of the agent loop.
type Step struct {
	Input      string            `json:"input,omitempty"`
	Context    map[string]string `json:"-"`
	Invocation *Invocation       `json:"action,omitempty"`
	Reasoning  string            `json:"reasoning,omitempty"`
	// Feedback is the user text supplied on the call that followed this step.
	Feedback string          `json:"feedback,omitempty"`
	Outcome  actions.Outcome `json:"result"`
	IsFinal  bool            `json:"is_final"`
}

// ActionName returns the invoked action name, or "" for a no-op turn.
func (s Step) ActionName() string {
	if s.Invocation == nil {
		return ""
	}
	return s.Invocation.Name
}

// ShouldContinue reports whether a caller may run the next step without
// waiting for the user. Pending IN_PROGRESS work is always drained, even after
// a final decision.
func ShouldContinue(s Step) bool {
	switch s.Outcome.Status {
	case actions.StatusInProgress:
		return true
	case actions.StatusSuccess, actions.StatusFailure:
		return !s.IsFinal
	default:
		return false
	}
}

// Finished reports whether the task is done: the decision was final and no
// action is waiting to be resumed.
func Finished(s Step) bool {
	return s.IsFinal && !s.Outcome.NeedsContinuation()
}

func cloneInvocation(in *Invocation) *Invocation {
	if in == nil {
		return nil
	}
	out := &Invocation{Name: in.Name, Parameters: make(map[string]any, len(in.Parameters))}
	for k, v := range in.Parameters {
		out.Parameters[k] = v
	}
	return out
}

func cloneVars(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
