package store

import (
	"context"
	"fmt"

	"github.com/rahul/taskpilot/internal/actions"
)

// ScheduleStore keeps recurring tasks.
type ScheduleStore struct {
	store *Store
}

func NewScheduleStore(s *Store) *ScheduleStore {
	return &ScheduleStore{store: s}
}

// AddTask registers a recurring task. A new task is due immediately.
func (h *ScheduleStore) AddTask(ctx context.Context, owner, description string, intervalSeconds int) error {
	query := `INSERT INTO tasks (chat_id, task_description, interval_seconds, last_run) VALUES (?, ?, ?, datetime('now', '-365 days'))`
	_, err := h.store.DB.ExecContext(ctx, query, owner, description, intervalSeconds)
	return err
}

// DueTasks returns the active tasks whose interval has elapsed since the last run.
func (h *ScheduleStore) DueTasks(ctx context.Context) ([]actions.ScheduledTask, error) {
	query := `
		SELECT id, chat_id, task_description, interval_seconds
		FROM tasks
		WHERE status = 'active'
		AND (last_run IS NULL OR (julianday('now') - julianday(last_run)) * 86400 >= interval_seconds)
		ORDER BY id`
	return h.query(ctx, query)
}

// ListTasks returns the recurring tasks of an owner.
func (h *ScheduleStore) ListTasks(ctx context.Context, owner string) ([]actions.ScheduledTask, error) {
	query := `SELECT id, chat_id, task_description, interval_seconds FROM tasks WHERE chat_id = ? ORDER BY id`
	return h.query(ctx, query, owner)
}

func (h *ScheduleStore) MarkRun(ctx context.Context, id int64) error {
	query := `UPDATE tasks SET last_run = datetime('now') WHERE id = ?`
	_, err := h.store.DB.ExecContext(ctx, query, id)
	return err
}

// DeleteTask removes one task of owner.
func (h *ScheduleStore) DeleteTask(ctx context.Context, owner string, id int64) error {
	res, err := h.store.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND chat_id = ?`, id, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: #%d", actions.ErrScheduledTaskNotFound, id)
	}
	return nil
}

func (h *ScheduleStore) ClearTasks(ctx context.Context, owner string) error {
	query := `DELETE FROM tasks WHERE chat_id = ?`
	_, err := h.store.DB.ExecContext(ctx, query, owner)
	return err
}

func (h *ScheduleStore) query(ctx context.Context, query string, args ...any) ([]actions.ScheduledTask, error) {
	rows, err := h.store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []actions.ScheduledTask
	for rows.Next() {
		var t actions.ScheduledTask
		if err := rows.Scan(&t.ID, &t.Owner, &t.Description, &t.IntervalSeconds); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
