package governance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rahul/taskpilot/internal/actions"
)

type stubTask struct{}

func (stubTask) ID() string                   { return "task-1" }
func (stubTask) Owner() string                { return "console:local" }
func (stubTask) Description() string          { return "test" }
func (stubTask) StartedAt() time.Time         { return time.Time{} }
func (stubTask) LastFeedback() string         { return "" }
func (stubTask) Workspace() actions.Workspace { return nil }

type countingAction struct {
	calls int
}

func (c *countingAction) Name() string           { return "shell" }
func (c *countingAction) Description() string    { return "runs commands" }
func (c *countingAction) Schema() actions.Schema { return actions.Params(actions.Param{Name: "command"}) }

func (c *countingAction) Invoke(ctx context.Context, task actions.Task, args map[string]any, vars map[string]string) actions.Outcome {
	c.calls++
	return actions.Success("ok", "ran")
}

func TestGuard_DeniedAction(t *testing.T) {
	engine := NewRuleSet()
	engine.DenyAction("shell")
	inner := &countingAction{}
	guarded := Guard(inner, engine, nil)

	out := guarded.Invoke(context.Background(), stubTask{}, map[string]any{"command": "ls"}, nil)
	if out.Status != actions.StatusFailure {
		t.Fatalf("Expected FAILURE, got %s", out.Status)
	}
	if !strings.Contains(out.Error, ErrDenied.Error()) {
		t.Errorf("Expected policy error, got %q", out.Error)
	}
	if inner.calls != 0 {
		t.Errorf("Denied action was invoked %d times", inner.calls)
	}
}

func TestGuard_AllowedAction(t *testing.T) {
	inner := &countingAction{}
	guarded := Guard(inner, NewRuleSet(), nil)

	if guarded.Name() != "shell" {
		t.Errorf("Guard changed the action name: %s", guarded.Name())
	}
	out := guarded.Invoke(context.Background(), stubTask{}, map[string]any{"command": "ls"}, nil)
	if out.Status != actions.StatusSuccess {
		t.Fatalf("Expected SUCCESS, got %s: %s", out.Status, out.Error)
	}
	if inner.calls != 1 {
		t.Errorf("Expected one call, got %d", inner.calls)
	}
}

func TestGuard_ForwardsContinuation(t *testing.T) {
	guarded := Guard(actions.NewAskAction(), NewRuleSet(), nil)

	out := actions.Continue(context.Background(), guarded, stubTask{}, "id-1", map[string]string{"question": "Which city?"}, nil)
	if out.Status != actions.StatusAwaitingInput {
		t.Errorf("Expected AWAITING_INPUT without feedback, got %s", out.Status)
	}
	if out.ID != "id-1" {
		t.Errorf("Expected continuation to keep the id, got %s", out.ID)
	}

	plain := Guard(&countingAction{}, NewRuleSet(), nil)
	out = actions.Continue(context.Background(), plain, stubTask{}, "id-2", nil, nil)
	if !strings.Contains(out.Error, actions.ErrContinuationUnsupported.Error()) {
		t.Errorf("Expected unsupported continuation, got %q", out.Error)
	}
}

type failingEngine struct{}

func (failingEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	return Result{}, errors.New("engine offline")
}

func TestGuard_EngineError(t *testing.T) {
	inner := &countingAction{}
	out := Guard(inner, failingEngine{}, nil).Invoke(context.Background(), stubTask{}, nil, nil)
	if out.Status != actions.StatusFailure {
		t.Fatalf("Expected FAILURE, got %s", out.Status)
	}
	if inner.calls != 0 {
		t.Error("Action ran although the policy could not be evaluated")
	}
}
