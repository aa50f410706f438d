package agent

import (
	"testing"

	"github.com/rahul/taskpilot/internal/actions"
)

func TestHistory(t *testing.T) {
	h := NewHistory()
	if h.AttachFeedback("early") {
		t.Error("feedback without steps should be rejected")
	}
	if _, ok := h.Last(); ok {
		t.Error("empty history has no last step")
	}

	h.Append(Step{Reasoning: "one", Outcome: actions.Success(nil, "1")})
	h.Append(Step{Reasoning: "two", Outcome: actions.Success(nil, "2")})
	if !h.AttachFeedback("nice") {
		t.Fatal("AttachFeedback failed")
	}

	steps := h.Steps()
	if len(steps) != 2 || steps[0].Feedback != "" || steps[1].Feedback != "nice" {
		t.Errorf("unexpected steps: %+v", steps)
	}

	steps[0].Reasoning = "changed"
	if first := h.Steps()[0]; first.Reasoning != "one" {
		t.Error("Steps should return a copy")
	}
}

func TestShouldContinue(t *testing.T) {
	tests := []struct {
		step Step
		want bool
	}{
		{Step{Outcome: actions.Success(nil, "")}, true},
		{Step{Outcome: actions.Failure(nil, "x")}, true},
		{Step{Outcome: actions.InProgress(nil, "", nil)}, true},
		{Step{Outcome: actions.Awaiting(nil, "", nil)}, false},
		{Step{Outcome: actions.Noop("")}, false},
		{Step{Outcome: actions.Success(nil, ""), IsFinal: true}, false},
		{Step{Outcome: actions.InProgress(nil, "", nil), IsFinal: true}, true},
		{Step{Outcome: actions.Awaiting(nil, "", nil), IsFinal: true}, false},
	}
	for i, tt := range tests {
		if got := ShouldContinue(tt.step); got != tt.want {
			t.Errorf("case %d: ShouldContinue = %v, want %v", i, got, tt.want)
		}
	}
}

func TestFinished(t *testing.T) {
	if !Finished(Step{Outcome: actions.Success(nil, ""), IsFinal: true}) {
		t.Error("a final success finishes the task")
	}
	if Finished(Step{Outcome: actions.Awaiting(nil, "", nil), IsFinal: true}) {
		t.Error("a pending question keeps the task open")
	}
	if Finished(Step{Outcome: actions.Success(nil, "")}) {
		t.Error("a non-final step keeps the task open")
	}
}
