package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rahul/taskpilot/internal/actions"
	"github.com/tmc/langchaingo/llms"
)

type memRecorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *memRecorder) RecordStep(ctx context.Context, taskID, owner string, index int, step Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, owner+"/"+step.ActionName())
	return nil
}

func newTestSupervisor(t *testing.T, model llms.Model, opts ...SupervisorOption) *Supervisor {
	t.Helper()
	reg := newTestRegistry(t, &answerAction{result: "ok"}, actions.NewAskAction(), &countdownAction{})
	factory := func(description string, opts ...Option) *Agent {
		return New(description, model, reg, opts...)
	}
	return NewSupervisor(factory, opts...)
}

func TestSupervisorRunStopsOnFinal(t *testing.T) {
	model := NewScriptedModel(
		`{"action":{"name":"answer","parameters":{"query":"a"}},"is_final":false,"reasoning":"1"}`,
		`{"action":{"name":"countdown","parameters":{}},"is_final":false,"reasoning":"2"}`,
		`{"action":{"name":"answer","parameters":{"query":"b"}},"is_final":true,"reasoning":"3"}`,
	)
	rec := &memRecorder{}
	sup := newTestSupervisor(t, model, WithRecorder(rec))

	a := sup.Start("console:local", "do things")
	var seen int
	steps, err := sup.Run(context.Background(), a.ID(), "", nil, func(Step) { seen++ })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// answer, countdown (in progress), two continuations, final answer
	if len(steps) != 5 || seen != 5 {
		t.Fatalf("ran %d steps (%d callbacks), want 5", len(steps), seen)
	}
	if !steps[4].IsFinal {
		t.Error("last step should be final")
	}
	if len(rec.steps) != 5 || rec.steps[0] != "console:local/answer" {
		t.Errorf("recorded = %v", rec.steps)
	}
	if _, ok := sup.Active("console:local"); ok {
		t.Error("a finished task should not be active")
	}
}

func TestSupervisorRunStopsOnQuestion(t *testing.T) {
	model := NewScriptedModel(
		`{"action":{"name":"ask_user","parameters":{"question":"Which city?"}},"is_final":false,"reasoning":"need city"}`,
		`{"action":{"name":"answer","parameters":{"query":"weather"}},"is_final":true,"reasoning":"done"}`,
	)
	sup := newTestSupervisor(t, model)
	ctx := context.Background()

	a := sup.Start("telegram:1", "weather")
	steps, err := sup.Run(ctx, a.ID(), "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 || steps[0].Outcome.Status != actions.StatusAwaitingInput {
		t.Fatalf("expected to stop on the question: %+v", steps)
	}

	id, ok := sup.Active("telegram:1")
	if !ok || id != a.ID() {
		t.Fatalf("Active = %q, %v", id, ok)
	}

	// The answer resumes the question, then the model finishes.
	steps, err = sup.Run(ctx, id, "Paris", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[0].Outcome.Result != "Paris" || !steps[1].IsFinal {
		t.Errorf("unexpected steps: %+v", steps)
	}
}

func TestSupervisorMaxSteps(t *testing.T) {
	model := NewScriptedModel()
	for i := 0; i < 3; i++ {
		model.Then(`{"action":{"name":"answer","parameters":{}},"is_final":false,"reasoning":"again"}`)
	}
	sup := newTestSupervisor(t, model, WithMaxSteps(3))

	a := sup.Start("console:local", "loop")
	steps, err := sup.Run(context.Background(), a.ID(), "", nil, nil)
	if !errors.Is(err, ErrMaxStepsExceeded) {
		t.Fatalf("error = %v, want ErrMaxStepsExceeded", err)
	}
	if len(steps) != 3 {
		t.Errorf("ran %d steps, want 3", len(steps))
	}
}

func TestSupervisorTransportError(t *testing.T) {
	model := NewScriptedModel().Fail(errors.New("timeout"))
	sup := newTestSupervisor(t, model)

	a := sup.Start("console:local", "task")
	_, err := sup.Step(context.Background(), a.ID(), "", nil)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("error = %v", err)
	}
	if a.StepCount() != 0 {
		t.Error("no step should be recorded")
	}
}

func TestSupervisorUnknownTask(t *testing.T) {
	sup := newTestSupervisor(t, NewScriptedModel())
	if _, err := sup.Step(context.Background(), "missing", "", nil); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("error = %v, want ErrTaskNotFound", err)
	}
}

func TestSupervisorTasksAndRemove(t *testing.T) {
	sup := newTestSupervisor(t, NewScriptedModel())
	a := sup.Start("owner", "one")
	b := sup.Start("owner", "two")
	sup.Start("other", "three")

	if ids := sup.Tasks("owner"); len(ids) != 2 || ids[0] != a.ID() || ids[1] != b.ID() {
		t.Errorf("Tasks = %v", ids)
	}
	if id, _ := sup.Active("owner"); id != b.ID() {
		t.Errorf("Active = %s, want the latest task", id)
	}

	sup.Remove(b.ID())
	if _, ok := sup.Get(b.ID()); ok {
		t.Error("removed task is still known")
	}
	if id, _ := sup.Active("owner"); id != a.ID() {
		t.Errorf("Active after remove = %s", id)
	}
	sup.Remove(a.ID())
	if ids := sup.Tasks("owner"); len(ids) != 0 {
		t.Errorf("Tasks after remove = %v", ids)
	}
}

// blockingModel holds every call until released.
type blockingModel struct {
	started chan struct{}
	release chan struct{}
}

func (m *blockingModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.started <- struct{}{}
	<-m.release
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content: `{"action":{"name":"answer","parameters":{}},"is_final":true,"reasoning":"done"}`,
	}}}, nil
}

func (m *blockingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestSupervisorSerialisesSteps(t *testing.T) {
	model := &blockingModel{started: make(chan struct{}), release: make(chan struct{})}
	sup := newTestSupervisor(t, model)
	a := sup.Start("owner", "slow")
	other := sup.Start("owner2", "parallel")

	done := make(chan error, 2)
	go func() {
		_, err := sup.Step(context.Background(), a.ID(), "", nil)
		done <- err
	}()
	<-model.started

	if _, err := sup.Step(context.Background(), a.ID(), "", nil); !errors.Is(err, ErrTaskBusy) {
		t.Errorf("error = %v, want ErrTaskBusy", err)
	}

	// Other tasks are not blocked.
	go func() {
		_, err := sup.Step(context.Background(), other.ID(), "", nil)
		done <- err
	}()
	<-model.started

	close(model.release)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("step failed: %v", err)
		}
	}
}

func TestSupervisorCancel(t *testing.T) {
	model := NewScriptedModel(`{"action":{"name":"countdown","parameters":{}},"is_final":false,"reasoning":"go"}`)
	sup := newTestSupervisor(t, model)
	ctx := context.Background()

	a := sup.Start("owner", "count")
	if _, err := sup.Step(ctx, a.ID(), "", nil); err != nil {
		t.Fatal(err)
	}
	// countdown has no cancel entry point.
	step, err := sup.Cancel(ctx, a.ID())
	if err != nil {
		t.Fatal(err)
	}
	if step.Outcome.Status != actions.StatusFailure {
		t.Errorf("status = %s, want FAILURE", step.Outcome.Status)
	}
}
