package governance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rahul/taskpilot/internal/actions"
	"github.com/rahul/taskpilot/internal/observability"
)

// ErrDenied is reported in the Outcome of a blocked invocation.
var ErrDenied = errors.New("denied by policy")

// Guarded is an action whose invocations are checked by a policy engine first.
// Continuation, cancellation and auxiliary data pass through unchanged.
type Guarded struct {
	inner  actions.Action
	engine PolicyEngine
	logger *observability.Logger
}

// Guard wraps an action. A nil engine returns the action unchanged.
func Guard(a actions.Action, engine PolicyEngine, logger *observability.Logger) actions.Action {
	if engine == nil || a == nil {
		return a
	}
	return &Guarded{inner: a, engine: engine, logger: logger}
}

// GuardAll wraps every action of a list.
func GuardAll(list []actions.Action, engine PolicyEngine, logger *observability.Logger) []actions.Action {
	out := make([]actions.Action, 0, len(list))
	for _, a := range list {
		out = append(out, Guard(a, engine, logger))
	}
	return out
}

// Unwrap returns the guarded action.
func (g *Guarded) Unwrap() actions.Action { return g.inner }

func (g *Guarded) Name() string           { return g.inner.Name() }
func (g *Guarded) Description() string    { return g.inner.Description() }
func (g *Guarded) Schema() actions.Schema { return g.inner.Schema() }

func (g *Guarded) Category() string {
	return actions.Describe(g.inner).Category
}

func (g *Guarded) Invoke(ctx context.Context, task actions.Task, args map[string]any, vars map[string]string) actions.Outcome {
	encoded, err := json.Marshal(args)
	if err != nil {
		return actions.Failure(fmt.Errorf("encode arguments: %w", err), fmt.Sprintf("Could not check %s against policy", g.Name()))
	}

	req := Request{Action: g.Name(), Arguments: string(encoded)}
	if task != nil {
		req.TaskID = task.ID()
		req.Owner = task.Owner()
	}
	res, err := g.engine.Evaluate(ctx, req)
	if err != nil {
		return actions.Failure(fmt.Errorf("policy evaluation: %w", err), fmt.Sprintf("Could not check %s against policy", g.Name()))
	}
	g.logger.LogPolicy(req.Owner, req.TaskID, g.Name(), string(res.Effect), res.Reason)

	if res.Effect == EffectDeny {
		return actions.Failure(fmt.Errorf("%w: %s", ErrDenied, res.Reason), fmt.Sprintf("Blocked %s: %s", g.Name(), res.Reason))
	}
	return g.inner.Invoke(ctx, task, args, vars)
}

func (g *Guarded) Continue(ctx context.Context, task actions.Task, id string, state map[string]string, vars map[string]string) actions.Outcome {
	return actions.Continue(ctx, g.inner, task, id, state, vars)
}

func (g *Guarded) Cancel(ctx context.Context, task actions.Task, id string) actions.Outcome {
	return actions.Cancel(ctx, g.inner, task, id)
}

func (g *Guarded) AuxiliaryData(ctx context.Context, task actions.Task, vars map[string]string) map[string]any {
	return actions.AuxiliaryData(ctx, g.inner, task, vars)
}
