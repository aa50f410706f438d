package actions

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateAction         = errors.New("duplicate action name")
	ErrEmptyName               = errors.New("action name is empty")
	ErrContinuationUnsupported = errors.New("action does not support continuation")
	ErrCancelUnsupported       = errors.New("action does not support cancellation")
	ErrDocumentExists          = errors.New("document already exists")
	ErrDocumentNotFound        = errors.New("document not found")
)

// Action defines the contract every agent capability implements.
// Invoke must never panic across the boundary: failures are reported through
// a FAILURE Outcome.
type Action interface {
	Name() string
	Description() string
	Schema() Schema
	Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome
}

// Continuer is implemented by actions that can return IN_PROGRESS or
// AWAITING_INPUT and be resumed later.
type Continuer interface {
	Continue(ctx context.Context, task Task, id string, state map[string]string, vars map[string]string) Outcome
}

// Canceler is implemented by actions whose pending work can be abandoned.
type Canceler interface {
	Cancel(ctx context.Context, task Task, id string) Outcome
}

// AuxProvider surfaces out-of-band data to the prompt without being invocable.
type AuxProvider interface {
	AuxiliaryData(ctx context.Context, task Task, vars map[string]string) map[string]any
}

// Categorized actions report a grouping shown next to their description.
type Categorized interface {
	Category() string
}

// Task is the view of the running agent handed to actions.
type Task interface {
	ID() string
	Owner() string
	Description() string
	StartedAt() time.Time
	// LastFeedback is the user text attached to the most recent step.
	LastFeedback() string
	Workspace() Workspace
}

// Document is an artifact stored in the workspace of one task.
type Document struct {
	TaskID   string            `json:"task_id"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Workspace is the shared document store. Implementations must keep create
// and read atomic per (taskID, name).
type Workspace interface {
	ListDocuments(ctx context.Context, taskID string) ([]Document, error)
	GetDocument(ctx context.Context, taskID, name string) (Document, error)
	GetDocumentContent(ctx context.Context, taskID, name string) ([]byte, error)
	AddDocument(ctx context.Context, taskID, name string, content []byte, metadata map[string]string) (Document, error)
}

// Descriptor is the immutable identity of a registered action.
type Descriptor struct {
	Name        string
	Description string
	Schema      Schema
	Category    string
}

// Describe builds the descriptor of an action.
func Describe(a Action) Descriptor {
	d := Descriptor{
		Name:        a.Name(),
		Description: a.Description(),
		Schema:      a.Schema(),
	}
	if c, ok := a.(Categorized); ok {
		d.Category = c.Category()
	}
	return d
}

// Continue resumes a pending invocation, or fails when the action has no
// continuation entry point.
func Continue(ctx context.Context, a Action, task Task, id string, state map[string]string, vars map[string]string) Outcome {
	c, ok := a.(Continuer)
	if !ok {
		return Failure(fmt.Errorf("%w: %s", ErrContinuationUnsupported, a.Name()), fmt.Sprintf("Could not continue %s", a.Name()))
	}
	return c.Continue(ctx, task, id, state, vars)
}

// Cancel abandons a pending invocation, or fails when the action cannot be
// cancelled.
func Cancel(ctx context.Context, a Action, task Task, id string) Outcome {
	c, ok := a.(Canceler)
	if !ok {
		return Failure(fmt.Errorf("%w: %s", ErrCancelUnsupported, a.Name()), fmt.Sprintf("Could not cancel %s", a.Name()))
	}
	return c.Cancel(ctx, task, id)
}

// AuxiliaryData returns the out-of-band data of an action, if it provides any.
func AuxiliaryData(ctx context.Context, a Action, task Task, vars map[string]string) map[string]any {
	p, ok := a.(AuxProvider)
	if !ok {
		return nil
	}
	return p.AuxiliaryData(ctx, task, vars)
}

// Registry holds the actions available to one agent, in registration order.
// It is read-only once built.
type Registry struct {
	order  []Action
	byName map[string]Action
}

// NewRegistry builds a registry. Duplicate or empty names are configuration
// errors.
func NewRegistry(list ...Action) (*Registry, error) {
	r := &Registry{byName: make(map[string]Action, len(list))}
	for _, a := range list {
		if a == nil {
			continue
		}
		name := a.Name()
		if name == "" {
			return nil, ErrEmptyName
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAction, name)
		}
		r.byName[name] = a
		r.order = append(r.order, a)
	}
	return r, nil
}

// Get looks an action up by exact name.
func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.byName[name]
	return a, ok
}

func (r *Registry) All() []Action {
	return append([]Action(nil), r.order...)
}

func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, a := range r.order {
		out = append(out, Describe(a))
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
