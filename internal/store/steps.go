package store

import (
	"context"
	"encoding/json"

	"github.com/rahul/taskpilot/internal/agent"
)

// StepLog is the audit trail of executed steps.
type StepLog struct {
	store *Store
}

func NewStepLog(s *Store) *StepLog {
	return &StepLog{store: s}
}

// RecordStep stores the serialised step.
func (l *StepLog) RecordStep(ctx context.Context, taskID, owner string, index int, step agent.Step) error {
	payload, err := json.Marshal(step)
	if err != nil {
		return err
	}
	_, err = l.store.DB.ExecContext(ctx,
		`INSERT INTO steps (task_id, owner, step_index, action, status, is_final, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		taskID, owner, index, step.ActionName(), string(step.Outcome.Status), step.IsFinal, string(payload))
	return err
}

// Steps returns the recorded steps of a task in order.
func (l *StepLog) Steps(ctx context.Context, taskID string) ([]agent.Step, error) {
	rows, err := l.store.DB.QueryContext(ctx,
		`SELECT payload FROM steps WHERE task_id = ? ORDER BY step_index, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []agent.Step
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var s agent.Step
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
