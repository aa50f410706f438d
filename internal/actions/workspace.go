package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// WorkspaceAction lets the model manage the documents of its own task.
type WorkspaceAction struct{}

func NewWorkspaceAction() *WorkspaceAction {
	return &WorkspaceAction{}
}

func (w *WorkspaceAction) Name() string {
	return "workspace"
}

func (w *WorkspaceAction) Description() string {
	return "Manage documents in the task workspace: list, read and write."
}

func (w *WorkspaceAction) Category() string { return "documents" }

func (w *WorkspaceAction) Schema() Schema {
	return JSONSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"enum":        []string{"list", "read", "write"},
				"description": "The operation to perform",
			},
			"name": map[string]any{
				"type":        "string",
				"description": "The document name (for 'read' and 'write')",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The text to store (only for 'write')",
			},
		},
		"required": []string{"command"},
	})
}

func (w *WorkspaceAction) Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome {
	var in struct {
		Command string `json:"command"`
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return Failure(err, "Could not read workspace arguments")
	}

	ws := task.Workspace()
	if ws == nil {
		return Failure(fmt.Errorf("no workspace configured"), "The workspace is not available")
	}

	switch in.Command {
	case "list":
		docs, err := ws.ListDocuments(ctx, task.ID())
		if err != nil {
			return Failure(fmt.Errorf("failed to list documents: %w", err), "Could not list documents")
		}
		names := make([]string, 0, len(docs))
		for _, d := range docs {
			names = append(names, d.Name)
		}
		if len(names) == 0 {
			return Success(names, "The workspace is empty")
		}
		return Success(names, fmt.Sprintf("Listed %d documents", len(names)))

	case "read":
		if in.Name == "" {
			return Failure(fmt.Errorf("name is required for 'read'"), "Read without a document name")
		}
		data, err := ws.GetDocumentContent(ctx, task.ID(), in.Name)
		if err != nil {
			return Failure(fmt.Errorf("failed to read %s: %w", in.Name, err), fmt.Sprintf("Could not read %s", in.Name))
		}
		if !utf8.Valid(data) {
			return Success(fmt.Sprintf("(binary document, %d bytes)", len(data)), fmt.Sprintf("Read %s", in.Name))
		}
		return Success(string(data), fmt.Sprintf("Read %s", in.Name))

	case "write":
		if in.Name == "" {
			return Failure(fmt.Errorf("name is required for 'write'"), "Write without a document name")
		}
		doc, err := ws.AddDocument(ctx, task.ID(), in.Name, []byte(in.Content), map[string]string{
			"content_type": "text/plain",
			"source":       "workspace",
		})
		if errors.Is(err, ErrDocumentExists) {
			return Failure(fmt.Errorf("document %s already exists, choose another name", in.Name), fmt.Sprintf("Could not write %s", in.Name))
		}
		if err != nil {
			return Failure(fmt.Errorf("failed to write %s: %w", in.Name, err), fmt.Sprintf("Could not write %s", in.Name))
		}
		return Success(in.Name, fmt.Sprintf("Wrote %s", in.Name)).WithDocuments(doc)

	default:
		return Failure(fmt.Errorf("invalid command %q, use 'list', 'read' or 'write'", in.Command), "Invalid workspace command")
	}
}

// AuxiliaryData lists the documents the task can already see.
func (w *WorkspaceAction) AuxiliaryData(ctx context.Context, task Task, vars map[string]string) map[string]any {
	ws := task.Workspace()
	if ws == nil {
		return nil
	}
	docs, err := ws.ListDocuments(ctx, task.ID())
	if err != nil || len(docs) == 0 {
		return nil
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return map[string]any{"documents": strings.Join(names, ", ")}
}
