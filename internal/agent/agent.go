package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/taskpilot/internal/actions"
	"github.com/rahul/taskpilot/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

const fallbackActionName = actions.MessageActionName

// Derived context keys, refreshed on every step.
const (
	VarWeekday = "current_weekday"
	VarDate    = "current_date"
	VarTime    = "current_time"
)

// Agent runs one task. It owns the task context and history and advances the
// task one step per ExecuteNextStep call. An Agent is not safe for concurrent
// use; callers serialise steps per task (see Supervisor).
type Agent struct {
	id          string
	owner       string
	description string
	startedAt   time.Time

	model       llms.Model
	registry    *actions.Registry
	prompts     *PromptManager
	workspace   actions.Workspace
	logger      *observability.Logger
	callOptions []llms.CallOption
	fallback    actions.Action
	now         func() time.Time

	vars    map[string]string
	history *History
}

// Option configures an Agent.
type Option func(*Agent)

// WithID overrides the generated task id.
func WithID(id string) Option {
	return func(a *Agent) {
		if id != "" {
			a.id = id
		}
	}
}

// WithOwner records who the task belongs to (e.g. "telegram:42").
func WithOwner(owner string) Option {
	return func(a *Agent) { a.owner = owner }
}

func WithPrompts(pm *PromptManager) Option {
	return func(a *Agent) { a.prompts = pm }
}

func WithWorkspace(ws actions.Workspace) Option {
	return func(a *Agent) { a.workspace = ws }
}

func WithLogger(l *observability.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithCallOptions layers provider options onto every model call.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(a *Agent) { a.callOptions = append(a.callOptions, opts...) }
}

// WithJSONMode asks the provider to force JSON output.
func WithJSONMode() Option {
	return WithCallOptions(llms.WithJSONMode())
}

// WithClock replaces time.Now for derived context values.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New creates an agent for the given task description. The registry is fixed
// for the lifetime of the agent.
func New(description string, model llms.Model, registry *actions.Registry, opts ...Option) *Agent {
	a := &Agent{
		id:          uuid.NewString(),
		description: description,
		model:       model,
		registry:    registry,
		now:         time.Now,
		vars:        make(map[string]string),
		history:     NewHistory(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startedAt = a.now()
	// The fallback only shows text back to the user, so policy wrappers
	// around it are peeled off: undecodable output must always be displayed.
	if fb, ok := registry.Get(fallbackActionName); ok {
		a.fallback = unwrap(fb)
	} else {
		a.fallback = actions.NewMessageAction()
	}
	return a
}

type wrapper interface {
	Unwrap() actions.Action
}

func unwrap(action actions.Action) actions.Action {
	for {
		w, ok := action.(wrapper)
		if !ok {
			return action
		}
		action = w.Unwrap()
	}
}

func (a *Agent) ID() string                   { return a.id }
func (a *Agent) Owner() string                { return a.owner }
func (a *Agent) Description() string          { return a.description }
func (a *Agent) StartedAt() time.Time         { return a.startedAt }
func (a *Agent) Workspace() actions.Workspace { return a.workspace }

// LastFeedback returns the feedback attached to the latest step.
func (a *Agent) LastFeedback() string {
	last, ok := a.history.Last()
	if !ok {
		return ""
	}
	return last.Feedback
}

// Steps returns the recorded history.
func (a *Agent) Steps() []Step { return a.history.Steps() }

// StepCount returns how many steps were recorded.
func (a *Agent) StepCount() int { return a.history.Len() }

// Vars returns a copy of the persistent task context.
func (a *Agent) Vars() map[string]string { return cloneVars(a.vars) }

// ExecuteNextStep performs one iteration: attach feedback, merge context,
// render the prompt, ask the model, parse its decision, dispatch it and
// record the step. Only a failed model call is returned as an error; in that
// case neither the history nor the task context is changed.
func (a *Agent) ExecuteNextStep(ctx context.Context, input string, vars map[string]string) (Step, error) {
	// 1-2. Feedback and context are staged until the turn is certain to record a step
	merged := a.mergedVars(vars)
	snapshot := cloneVars(merged)

	// Pending actions resume through their continuation entry point.
	if last, ok := a.history.Last(); ok && a.shouldResume(last, input) {
		a.commit(input, merged)
		return a.resume(ctx, input, last, snapshot), nil
	}

	// 3. Render
	system, user := a.render(ctx, input, merged)

	// 4. Ask the model
	observability.SetStatus(observability.RoleThinking, a.description)
	defer observability.SetStatus(observability.RoleIdle, "")

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	resp, err := a.model.GenerateContent(ctx, messages, a.callOptions...)
	if err != nil {
		return Step{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	a.commit(input, merged)
	raw := responseText(resp)
	a.logger.LogLLM(a.owner, a.id, messages, raw)
	a.logUsage(resp)

	// 5. Parse, falling back to showing the raw text
	decision, err := ParseResponse(resp)
	parsed := err == nil
	if !parsed {
		log.Printf("[Agent %s] Could not parse decision: %v", a.id, err)
		decision = fallbackDecision(raw, err)
	}
	a.logger.LogReasoning(a.owner, a.id, decision.Reasoning)

	// 6. Dispatch
	observability.SetStatus(observability.RoleActing, decision.actionName())
	var outcome actions.Outcome
	if !parsed {
		outcome = a.fallback.Invoke(ctx, a, decision.Action.Parameters, snapshot)
	} else {
		if decision.Action != nil {
			a.logger.LogInvocation(a.owner, a.id, decision.Action.Name, decision.Action.Parameters)
		}
		outcome = Dispatch(ctx, a.registry, a, decision.Action, snapshot)
	}

	// 7. Record
	step := Step{
		Input:      input,
		Context:    snapshot,
		Invocation: decision.Action,
		Reasoning:  decision.Reasoning,
		Outcome:    outcome,
		IsFinal:    decision.IsFinal,
	}
	a.record(step)
	return step, nil
}

// CancelPending abandons the action awaiting continuation, if any, and
// records the cancellation as a step.
func (a *Agent) CancelPending(ctx context.Context) (Step, error) {
	last, ok := a.history.Last()
	if !ok || !last.Outcome.NeedsContinuation() || last.Invocation == nil {
		return Step{}, ErrNothingPending
	}
	action, ok := a.registry.Get(last.Invocation.Name)
	if !ok {
		return Step{}, fmt.Errorf("%w: %s is not registered", ErrNothingPending, last.Invocation.Name)
	}

	outcome := actions.Cancel(ctx, action, a, last.Outcome.ID)
	step := Step{
		Context:    cloneVars(a.vars),
		Invocation: cloneInvocation(last.Invocation),
		Reasoning:  fmt.Sprintf("cancelled %s (%s)", last.Invocation.Name, last.Outcome.ID),
		Outcome:    outcome,
		IsFinal:    false,
	}
	a.record(step)
	return step, nil
}

// shouldResume decides whether the latest step is resumed instead of asking
// the model. Empty input never counts as an answer to a question.
func (a *Agent) shouldResume(last Step, input string) bool {
	if last.Invocation == nil {
		return false
	}
	switch last.Outcome.Status {
	case actions.StatusInProgress:
		return true
	case actions.StatusAwaitingInput:
		return input != ""
	default:
		return false
	}
}

func (a *Agent) resume(ctx context.Context, input string, last Step, snapshot map[string]string) Step {
	inv := cloneInvocation(last.Invocation)

	var outcome actions.Outcome
	action, ok := a.registry.Get(inv.Name)
	if !ok {
		outcome = actions.Failure(
			fmt.Errorf("invalid action %q: no such action is available", inv.Name),
			fmt.Sprintf("Attempted to continue non-existent action %q", inv.Name),
		)
	} else {
		observability.SetStatus(observability.RoleActing, inv.Name)
		defer observability.SetStatus(observability.RoleIdle, "")
		outcome = actions.Continue(ctx, action, a, last.Outcome.ID, last.Outcome.StateData, snapshot)
	}

	step := Step{
		Input:      input,
		Context:    snapshot,
		Invocation: inv,
		Reasoning:  fmt.Sprintf("continuing %s (%s)", inv.Name, last.Outcome.ID),
		Outcome:    outcome,
		IsFinal:    last.IsFinal,
	}
	a.record(step)
	return step
}

// mergedVars returns the task context with vars layered on and the derived
// date values refreshed. The agent's own context is not modified.
func (a *Agent) mergedVars(vars map[string]string) map[string]string {
	merged := cloneVars(a.vars)
	for k, v := range vars {
		merged[k] = v
	}
	now := a.now()
	merged[VarWeekday] = now.Weekday().String()
	merged[VarDate] = now.Format("2006-01-02")
	merged[VarTime] = now.Format("15:04:05")
	return merged
}

// commit applies the staged feedback and context of a turn.
func (a *Agent) commit(input string, merged map[string]string) {
	if input != "" {
		a.history.AttachFeedback(input)
	}
	a.vars = merged
}

func (a *Agent) render(ctx context.Context, input string, vars map[string]string) (string, string) {
	preamble, err := a.prompts.Preamble()
	if err != nil {
		log.Printf("Warning: Failed to load prompt files: %v", err)
		preamble = DefaultPreamble
	}
	format, err := a.prompts.OutputFormat()
	if err != nil {
		log.Printf("Warning: Failed to load output format: %v", err)
		format = DefaultOutputFormat
	}

	aux := make(map[string]map[string]any)
	for _, action := range a.registry.All() {
		if data := actions.AuxiliaryData(ctx, action, a, vars); len(data) > 0 {
			aux[action.Name()] = data
		}
	}

	var docs []actions.Document
	if a.workspace != nil {
		docs, err = a.workspace.ListDocuments(ctx, a.id)
		if err != nil {
			log.Printf("Warning: Failed to list workspace documents for %s: %v", a.id, err)
		}
	}

	system := RenderSystem(preamble, vars, a.registry.Descriptors(), aux, docs)
	user := RenderUser(a.description, input, a.history.Preview(input), format)
	return system, user
}

func (a *Agent) record(step Step) {
	a.history.Append(step)
	observability.StepRecorded(step.Outcome.Status == actions.StatusFailure)
	a.logger.LogStep(a.owner, a.id, a.history.Len(), step.ActionName(), string(step.Outcome.Status), step.Outcome.Summary, step.IsFinal)
	log.Printf("[Agent %s] Step %d: %s -> %s (%s)", a.id, a.history.Len(), step.ActionName(), step.Outcome.Status, step.Outcome.Summary)
}

func (a *Agent) logUsage(resp *llms.ContentResponse) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return
	}
	info := resp.Choices[0].GenerationInfo
	prompt, okP := info["PromptTokens"].(int)
	completion, okC := info["CompletionTokens"].(int)
	if okP || okC {
		model, _ := info["Model"].(string)
		a.logger.LogCost(a.owner, a.id, prompt, completion, model)
	}
}

func (d Decision) actionName() string {
	if d.Action == nil {
		return ""
	}
	return d.Action.Name
}

func responseText(resp *llms.ContentResponse) string {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return ""
	}
	return resp.Choices[0].Content
}
