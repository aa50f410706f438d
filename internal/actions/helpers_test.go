package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type fakeTask struct {
	id       string
	owner    string
	feedback string
	ws       Workspace
}

func (t *fakeTask) ID() string           { return t.id }
func (t *fakeTask) Owner() string        { return t.owner }
func (t *fakeTask) Description() string  { return "test task" }
func (t *fakeTask) StartedAt() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
func (t *fakeTask) LastFeedback() string { return t.feedback }
func (t *fakeTask) Workspace() Workspace { return t.ws }

// memWorkspace is an in-memory Workspace keyed by task and name.
type memWorkspace struct {
	mu   sync.Mutex
	docs map[string]map[string]memDoc
}

type memDoc struct {
	content []byte
	meta    map[string]string
	seq     int
}

func newMemWorkspace() *memWorkspace {
	return &memWorkspace{docs: make(map[string]map[string]memDoc)}
}

func (w *memWorkspace) ListDocuments(ctx context.Context, taskID string) ([]Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Document
	for name, d := range w.docs[taskID] {
		out = append(out, Document{TaskID: taskID, Name: name, Metadata: d.meta})
	}
	sort.Slice(out, func(i, j int) bool {
		return w.docs[taskID][out[i].Name].seq < w.docs[taskID][out[j].Name].seq
	})
	return out, nil
}

func (w *memWorkspace) GetDocument(ctx context.Context, taskID, name string) (Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.docs[taskID][name]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	return Document{TaskID: taskID, Name: name, Metadata: d.meta}, nil
}

func (w *memWorkspace) GetDocumentContent(ctx context.Context, taskID, name string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.docs[taskID][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	return d.content, nil
}

func (w *memWorkspace) AddDocument(ctx context.Context, taskID, name string, content []byte, metadata map[string]string) (Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.docs[taskID] == nil {
		w.docs[taskID] = make(map[string]memDoc)
	}
	if _, ok := w.docs[taskID][name]; ok {
		return Document{}, fmt.Errorf("%w: %s", ErrDocumentExists, name)
	}
	w.docs[taskID][name] = memDoc{content: content, meta: metadata, seq: len(w.docs[taskID])}
	return Document{TaskID: taskID, Name: name, Metadata: metadata}, nil
}
