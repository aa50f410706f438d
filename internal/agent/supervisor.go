package agent

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/rahul/taskpilot/internal/observability"
)

// DefaultMaxSteps bounds how many steps Run executes without user input.
const DefaultMaxSteps = 15

// Factory builds the agent for a new task.
type Factory func(description string, opts ...Option) *Agent

// Recorder persists executed steps, e.g. for audit.
type Recorder interface {
	RecordStep(ctx context.Context, taskID, owner string, index int, step Step) error
}

// Supervisor keeps the running tasks, keyed by task id, and serialises the
// steps of each task. It is safe for concurrent use.
type Supervisor struct {
	factory  Factory
	recorder Recorder
	maxSteps int

	mu      sync.RWMutex
	tasks   map[string]*taskEntry
	byOwner map[string][]string
}

type taskEntry struct {
	agent *Agent
	// step is held while the agent executes; Agents are not reentrant.
	step sync.Mutex
	// finished is guarded by Supervisor.mu.
	finished bool
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

func WithRecorder(r Recorder) SupervisorOption {
	return func(s *Supervisor) { s.recorder = r }
}

func WithMaxSteps(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

func NewSupervisor(factory Factory, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		factory:  factory,
		maxSteps: DefaultMaxSteps,
		tasks:    make(map[string]*taskEntry),
		byOwner:  make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a task for owner and returns its agent.
func (s *Supervisor) Start(owner, description string) *Agent {
	a := s.factory(description, WithOwner(owner))

	s.mu.Lock()
	s.tasks[a.ID()] = &taskEntry{agent: a}
	s.byOwner[owner] = append(s.byOwner[owner], a.ID())
	s.mu.Unlock()

	log.Printf("[Supervisor] Started task %s for %s: %s", a.ID(), owner, description)
	return a
}

// Get returns the agent of a task.
func (s *Supervisor) Get(taskID string) (*Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return nil, false
	}
	return e.agent, true
}

// Tasks lists the task ids of an owner, oldest first.
func (s *Supervisor) Tasks(owner string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.byOwner[owner]...)
}

// Active returns the latest task of owner unless it has finished.
func (s *Supervisor) Active(owner string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[owner]
	if len(ids) == 0 {
		return "", false
	}
	id := ids[len(ids)-1]
	e, ok := s.tasks[id]
	if !ok || e.finished {
		return "", false
	}
	return id, true
}

// Remove forgets a task.
func (s *Supervisor) Remove(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return
	}
	delete(s.tasks, taskID)
	owner := e.agent.Owner()
	ids := s.byOwner[owner]
	for i, id := range ids {
		if id == taskID {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byOwner, owner)
	} else {
		s.byOwner[owner] = ids
	}
}

// Step executes exactly one step of a task. It fails with ErrTaskBusy when
// another step of the same task is running.
func (s *Supervisor) Step(ctx context.Context, taskID, input string, vars map[string]string) (Step, error) {
	e, err := s.acquire(taskID)
	if err != nil {
		return Step{}, err
	}
	defer e.step.Unlock()
	return s.execute(ctx, e, input, vars)
}

// Run executes steps until the task is final, waits for the user, takes a
// no-op turn or reaches the step limit. Only the first step receives input.
// onStep, if set, is called after every step.
func (s *Supervisor) Run(ctx context.Context, taskID, input string, vars map[string]string, onStep func(Step)) ([]Step, error) {
	e, err := s.acquire(taskID)
	if err != nil {
		return nil, err
	}
	defer e.step.Unlock()

	var steps []Step
	for i := 0; i < s.maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		step, err := s.execute(ctx, e, input, vars)
		if err != nil {
			return steps, err
		}
		steps = append(steps, step)
		if onStep != nil {
			onStep(step)
		}
		if !ShouldContinue(step) {
			return steps, nil
		}
		input = ""
		vars = nil
	}
	return steps, fmt.Errorf("%w (%d)", ErrMaxStepsExceeded, s.maxSteps)
}

// Cancel abandons the pending action of a task.
func (s *Supervisor) Cancel(ctx context.Context, taskID string) (Step, error) {
	e, err := s.acquire(taskID)
	if err != nil {
		return Step{}, err
	}
	defer e.step.Unlock()

	step, err := e.agent.CancelPending(ctx)
	if err != nil {
		return Step{}, err
	}
	s.persist(ctx, e.agent, step)
	return step, nil
}

func (s *Supervisor) acquire(taskID string) (*taskEntry, error) {
	s.mu.RLock()
	e, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if !e.step.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrTaskBusy, taskID)
	}
	return e, nil
}

func (s *Supervisor) execute(ctx context.Context, e *taskEntry, input string, vars map[string]string) (Step, error) {
	observability.TaskStarted()
	defer observability.TaskFinished()

	if vars == nil {
		vars = map[string]string{}
	}
	step, err := e.agent.ExecuteNextStep(ctx, input, vars)
	if err != nil {
		log.Printf("[Supervisor] Task %s step failed: %v", e.agent.ID(), err)
		return Step{}, err
	}
	s.persist(ctx, e.agent, step)

	s.mu.Lock()
	e.finished = Finished(step)
	s.mu.Unlock()
	return step, nil
}

func (s *Supervisor) persist(ctx context.Context, a *Agent, step Step) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordStep(ctx, a.ID(), a.Owner(), a.StepCount(), step); err != nil {
		log.Printf("[Supervisor] Failed to record step for task %s: %v", a.ID(), err)
	}
}
