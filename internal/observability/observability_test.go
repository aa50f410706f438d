package observability

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_EventsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLoggerWith(zap.New(core), "")

	l.LogStep("console:local", "t1", 2, "web_search", "SUCCESS", "Found 3 results", false)
	l.LogHeartbeat(1) // debug level, filtered out

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Message != string(EventTypeStep) {
		t.Errorf("message = %q", e.Message)
	}
	fields := e.ContextMap()
	if fields["owner"] != "console:local" || fields["task_id"] != "t1" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestLogger_LLMTranscriptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "llm.jsonl")
	l := NewLoggerWith(zap.NewNop(), path)

	l.LogLLM("telegram:1", "t1", "prompt text", "raw answer")
	l.LogLLM("telegram:1", "t1", "prompt text", "second answer")

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var evt Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			t.Fatalf("line %d is not an event: %v", lines, err)
		}
		if evt.Type != EventTypeLLM || evt.TaskID != "t1" {
			t.Errorf("unexpected event %+v", evt)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

func TestLogger_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.jsonl")
	l := NewLoggerWith(zap.NewNop(), path)
	l.maxSize = 10

	l.LogLLM("", "t1", "p", "first")
	l.LogLLM("", "t1", "p", "second")

	if _, err := os.Stat(path + ".old"); err != nil {
		t.Errorf("expected rotated file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "second") || strings.Contains(string(data), "first") {
		t.Errorf("current file should only hold the newest event, got %s", data)
	}
}

func TestLogger_NilIsSafe(t *testing.T) {
	var l *Logger
	l.LogReasoning("o", "t", "thinking")
	l.LogPolicy("o", "t", "shell", "deny", "blocked")
	l.Sync()
}

func TestHealthOf(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want Health
	}{
		{0, HealthOK},
		{39 * time.Second, HealthOK},
		{40 * time.Second, HealthLagging},
		{89 * time.Second, HealthLagging},
		{90 * time.Second, HealthDown},
	}
	for _, tt := range tests {
		if got := HealthOf(tt.age); got != tt.want {
			t.Errorf("HealthOf(%v) = %s, want %s", tt.age, got, tt.want)
		}
	}
}

func TestStatusCounters(t *testing.T) {
	before := CurrentStatus()

	TaskStarted()
	SetStatus(RoleActing, "web_search")
	StepRecorded(false)
	StepRecorded(true)
	mid := CurrentStatus()
	TaskFinished()
	SetStatus(RoleIdle, "")

	if mid.ActiveTasks != before.ActiveTasks+1 {
		t.Errorf("active tasks = %d, want %d", mid.ActiveTasks, before.ActiveTasks+1)
	}
	if mid.Role != RoleActing || mid.Label != "web_search" {
		t.Errorf("unexpected role %s / %q", mid.Role, mid.Label)
	}
	if mid.Steps != before.Steps+2 || mid.FailedSteps != before.FailedSteps+1 {
		t.Errorf("steps = %d failed = %d", mid.Steps, mid.FailedSteps)
	}
	if ActiveTasks() != before.ActiveTasks {
		t.Errorf("active tasks not released")
	}
}

func TestStatusLine(t *testing.T) {
	snap := Snapshot{
		Role:          RoleThinking,
		Label:         "Summarise the quarterly sales report for the board",
		ActiveTasks:   2,
		Steps:         7,
		FailedSteps:   1,
		LastHeartbeat: time.Now(),
	}
	line := StatusLine(snap, 90*time.Second, 12.5, "◜")

	for _, want := range []string{"HEALTHY", "THINKING", "Summarise the quarterl...", "tasks:2 steps:7 failed:1", "1m30s", "12.5MB"} {
		if !strings.Contains(line, want) {
			t.Errorf("status line missing %q: %s", want, line)
		}
	}

	idle := StatusLine(Snapshot{Role: RoleIdle, LastHeartbeat: time.Now().Add(-2 * time.Minute)}, 0, 0, " ")
	if !strings.Contains(idle, "Waiting...") || !strings.Contains(idle, "OFFLINE") {
		t.Errorf("unexpected idle line: %s", idle)
	}
}
