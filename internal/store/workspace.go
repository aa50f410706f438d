package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rahul/taskpilot/internal/actions"
)

// Workspace keeps the documents of every task. Names are unique per task.
type Workspace struct {
	store *Store
}

func NewWorkspace(s *Store) *Workspace {
	return &Workspace{store: s}
}

func (w *Workspace) ListDocuments(ctx context.Context, taskID string) ([]actions.Document, error) {
	rows, err := w.store.DB.QueryContext(ctx,
		`SELECT name, metadata FROM documents WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []actions.Document
	for rows.Next() {
		var name string
		var meta sql.NullString
		if err := rows.Scan(&name, &meta); err != nil {
			return nil, err
		}
		doc, err := newDocument(taskID, name, meta)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (w *Workspace) GetDocument(ctx context.Context, taskID, name string) (actions.Document, error) {
	var meta sql.NullString
	err := w.store.DB.QueryRowContext(ctx,
		`SELECT metadata FROM documents WHERE task_id = ? AND name = ?`, taskID, name).Scan(&meta)
	if errors.Is(err, sql.ErrNoRows) {
		return actions.Document{}, fmt.Errorf("%w: %s", actions.ErrDocumentNotFound, name)
	}
	if err != nil {
		return actions.Document{}, err
	}
	return newDocument(taskID, name, meta)
}

func (w *Workspace) GetDocumentContent(ctx context.Context, taskID, name string) ([]byte, error) {
	var content []byte
	err := w.store.DB.QueryRowContext(ctx,
		`SELECT content FROM documents WHERE task_id = ? AND name = ?`, taskID, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", actions.ErrDocumentNotFound, name)
	}
	return content, err
}

// AddDocument stores a new document. It fails with actions.ErrDocumentExists
// if the task already has a document of that name.
func (w *Workspace) AddDocument(ctx context.Context, taskID, name string, content []byte, metadata map[string]string) (actions.Document, error) {
	if strings.TrimSpace(name) == "" {
		return actions.Document{}, errors.New("document name is required")
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return actions.Document{}, err
	}
	if content == nil {
		content = []byte{}
	}

	_, err = w.store.DB.ExecContext(ctx,
		`INSERT INTO documents (task_id, name, content, metadata) VALUES (?, ?, ?, ?)`,
		taskID, name, content, string(meta))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return actions.Document{}, fmt.Errorf("%w: %s", actions.ErrDocumentExists, name)
		}
		return actions.Document{}, err
	}
	return actions.Document{TaskID: taskID, Name: name, Metadata: metadata}, nil
}

func newDocument(taskID, name string, meta sql.NullString) (actions.Document, error) {
	doc := actions.Document{TaskID: taskID, Name: name}
	if meta.Valid && meta.String != "" && meta.String != "null" {
		if err := json.Unmarshal([]byte(meta.String), &doc.Metadata); err != nil {
			return actions.Document{}, fmt.Errorf("document %s: bad metadata: %w", name, err)
		}
	}
	return doc, nil
}
