package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MinScheduleInterval keeps recurring tasks from flooding the owner.
const MinScheduleInterval = 60

// ErrScheduledTaskNotFound is returned when an owner has no task with the id.
var ErrScheduledTaskNotFound = errors.New("scheduled task not found")

// ScheduledTask is a recurring task of an owner.
type ScheduledTask struct {
	ID              int64
	Owner           string
	Description     string
	IntervalSeconds int
}

// ScheduleStore persists recurring tasks for an owner.
type ScheduleStore interface {
	AddTask(ctx context.Context, owner, description string, intervalSeconds int) error
	ListTasks(ctx context.Context, owner string) ([]ScheduledTask, error)
	DeleteTask(ctx context.Context, owner string, id int64) error
	ClearTasks(ctx context.Context, owner string) error
}

type ScheduleAction struct {
	Store ScheduleStore
}

func NewScheduleAction(store ScheduleStore) *ScheduleAction {
	return &ScheduleAction{Store: store}
}

func (c *ScheduleAction) Name() string {
	return "schedule_task"
}

func (c *ScheduleAction) Description() string {
	return "Manage recurring tasks: 'schedule' a new one, 'list' the current ones, 'delete' one by id or 'clear' all of them."
}

func (c *ScheduleAction) Schema() Schema {
	return JSONSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"schedule", "list", "delete", "clear"},
				"description": "The action to perform",
			},
			"task_id": map[string]any{
				"type":        "integer",
				"description": "The id of the task to remove (only for 'delete', see 'list')",
			},
			"task_description": map[string]any{
				"type":        "string",
				"description": "What the agent should do (only for 'schedule')",
			},
			"interval_seconds": map[string]any{
				"type":        "integer",
				"description": "The interval in seconds (minimum 60s, only for 'schedule')",
			},
		},
		"required": []string{"action"},
	})
}

func (c *ScheduleAction) Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome {
	owner := task.Owner()
	if owner == "" {
		return Failure(fmt.Errorf("task has no owner to deliver results to"), "Could not manage scheduled tasks")
	}

	switch StringArg(args, "action") {
	case "list":
		tasks, err := c.Store.ListTasks(ctx, owner)
		if err != nil {
			return Failure(fmt.Errorf("failed to list tasks: %w", err), "Could not list scheduled tasks")
		}
		if len(tasks) == 0 {
			return Success("No scheduled tasks.", "No scheduled tasks")
		}
		var sb strings.Builder
		for _, t := range tasks {
			fmt.Fprintf(&sb, "#%d every %ds: %s\n", t.ID, t.IntervalSeconds, t.Description)
		}
		return Success(strings.TrimRight(sb.String(), "\n"), fmt.Sprintf("Found %d scheduled task(s)", len(tasks)))

	case "delete":
		id := IntArg(args, "task_id", 0)
		if id <= 0 {
			return Failure(fmt.Errorf("task_id is required"), "Could not delete the scheduled task")
		}
		if err := c.Store.DeleteTask(ctx, owner, int64(id)); err != nil {
			return Failure(fmt.Errorf("failed to delete task %d: %w", id, err), "Could not delete the scheduled task")
		}
		return Success(nil, fmt.Sprintf("Deleted scheduled task #%d", id))

	case "clear":
		if err := c.Store.ClearTasks(ctx, owner); err != nil {
			return Failure(fmt.Errorf("failed to clear tasks: %w", err), "Could not clear scheduled tasks")
		}
		return Success(nil, "Cleared all scheduled tasks")

	case "schedule":
		desc := strings.TrimSpace(StringArg(args, "task_description"))
		interval := IntArg(args, "interval_seconds", 0)
		if desc == "" {
			return Failure(fmt.Errorf("task_description is required"), "Could not schedule the task")
		}
		if interval < MinScheduleInterval {
			return Failure(fmt.Errorf("minimum interval is %d seconds", MinScheduleInterval), "Could not schedule the task")
		}
		if err := c.Store.AddTask(ctx, owner, desc, interval); err != nil {
			return Failure(fmt.Errorf("failed to schedule task: %w", err), "Could not schedule the task")
		}
		return Success(nil, fmt.Sprintf("Scheduled task: '%s' every %d seconds", desc, interval))

	default:
		return Failure(fmt.Errorf("invalid action, use 'schedule', 'list', 'delete' or 'clear'"), "Invalid schedule action")
	}
}
