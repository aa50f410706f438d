package agent

import (
	"context"
	"fmt"

	"github.com/rahul/taskpilot/internal/actions"
)

// Dispatch runs the chosen invocation against the registry. Only name
// resolution is handled here; actions report their own failures.
func Dispatch(ctx context.Context, reg *actions.Registry, task actions.Task, inv *Invocation, vars map[string]string) actions.Outcome {
	if inv == nil {
		return actions.Noop("No action taken")
	}

	action, ok := reg.Get(inv.Name)
	if !ok {
		return actions.Failure(
			fmt.Errorf("invalid action %q: no such action is available", inv.Name),
			fmt.Sprintf("Attempted to run non-existent action %q", inv.Name),
		)
	}
	return action.Invoke(ctx, task, inv.Parameters, vars)
}
