package actions

import (
	"context"
	"errors"
	"testing"
)

type fakeSearcher struct {
	query string
	err   error
}

func (f *fakeSearcher) Call(ctx context.Context, input string) (string, error) {
	f.query = input
	if f.err != nil {
		return "", f.err
	}
	return "Title: Go 1.23\nLink: https://go.dev", nil
}

func TestSearchAction(t *testing.T) {
	backend := &fakeSearcher{}
	s := NewSearchActionWith(backend)

	out := s.Invoke(context.Background(), &fakeTask{}, map[string]any{"query": " go releases "}, nil)
	if out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s)", out.Status, out.Error)
	}
	if backend.query != "go releases" {
		t.Errorf("query = %q", backend.query)
	}

	backend.err = errors.New("rate limited")
	out = s.Invoke(context.Background(), &fakeTask{}, map[string]any{"query": "go"}, nil)
	if out.Status != StatusFailure {
		t.Errorf("backend errors should become failures: %+v", out)
	}

	if out := s.Invoke(context.Background(), &fakeTask{}, nil, nil); out.Status != StatusFailure {
		t.Errorf("empty query should fail: %+v", out)
	}
}

func TestValidateBrowserArgs(t *testing.T) {
	tests := []struct {
		action, url, selector, text string
		ok                          bool
	}{
		{"navigate", "https://go.dev", "", "", true},
		{"navigate", "", "", "", false},
		{"click", "", "#submit", "", true},
		{"click", "", "", "", false},
		{"type", "", "#q", "golang", true},
		{"type", "", "#q", "", false},
		{"press", "", "", "Enter", true},
		{"screenshot", "", "", "", true},
		{"fly", "", "", "", false},
	}
	for _, tt := range tests {
		err := validateBrowserArgs(tt.action, tt.url, tt.selector, tt.text)
		if (err == nil) != tt.ok {
			t.Errorf("validateBrowserArgs(%s) error = %v, want ok=%v", tt.action, err, tt.ok)
		}
	}
}

func TestBrowserActionRejectsBadArgsWithoutStarting(t *testing.T) {
	b := NewBrowserAction(true)
	out := b.Invoke(context.Background(), &fakeTask{}, map[string]any{"action": "navigate"}, nil)
	if out.Status != StatusFailure {
		t.Errorf("status = %s, want FAILURE", out.Status)
	}
	if b.browserCtx != nil {
		t.Error("the browser should not start for invalid arguments")
	}
	if out := b.Invoke(context.Background(), &fakeTask{}, map[string]any{"action": "close"}, nil); out.Status != StatusSuccess {
		t.Errorf("close without a browser: %+v", out)
	}
}

func TestShellAction(t *testing.T) {
	s := NewShellAction()
	s.Dir = t.TempDir()

	out := s.Invoke(context.Background(), &fakeTask{}, map[string]any{"command": "echo hello"}, nil)
	if out.Status != StatusSuccess || out.Result != "hello" {
		t.Errorf("echo: %+v", out)
	}
	out = s.Invoke(context.Background(), &fakeTask{}, map[string]any{"command": "exit 3"}, nil)
	if out.Status != StatusFailure {
		t.Errorf("a failing command should fail: %+v", out)
	}
	if out := s.Invoke(context.Background(), &fakeTask{}, map[string]any{}, nil); out.Status != StatusFailure {
		t.Errorf("empty command should fail: %+v", out)
	}
}
