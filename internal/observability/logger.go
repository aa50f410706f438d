package observability

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeReasoning  EventType = "reasoning"
	EventTypeInvocation EventType = "invocation"
	EventTypeStep       EventType = "step"
	EventTypePolicy     EventType = "policy_check"
	EventTypeCost       EventType = "cost"
	EventTypeHeartbeat  EventType = "heartbeat"
	EventTypeLLM        EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	Owner     string    `json:"owner,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger emits structured events through zap. LLM exchanges are also kept in
// a rotated JSONL file. A nil *Logger discards everything.
type Logger struct {
	zl         *zap.Logger
	llmLogPath string
	maxSize    int64
	mu         sync.Mutex
}

// Options configure NewLogger.
type Options struct {
	Debug      bool
	LLMLogPath string
	// Output is a zap sink such as "stdout" (default) or "stderr".
	Output string
}

func NewLogger(opts Options) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.OutputPaths = []string{"stdout"}
	if opts.Output != "" {
		cfg.OutputPaths = []string{opts.Output}
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewLoggerWith(zl, opts.LLMLogPath), nil
}

// NewLoggerWith wraps an existing zap logger. An empty path disables the LLM
// transcript file.
func NewLoggerWith(zl *zap.Logger, llmLogPath string) *Logger {
	return &Logger{
		zl:         zl,
		llmLogPath: llmLogPath,
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// DefaultLLMLogPath is where LLM exchanges are written by default.
var DefaultLLMLogPath = filepath.Join("logs", "llm.jsonl")

// Log emits a structured event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	level := zapcore.InfoLevel
	if evt.Type == EventTypeLLM || evt.Type == EventTypeHeartbeat {
		level = zapcore.DebugLevel
	}
	if ce := l.zl.Check(level, string(evt.Type)); ce != nil {
		ce.Write(
			zap.String("owner", evt.Owner),
			zap.String("task_id", evt.TaskID),
			zap.Any("data", evt.Data),
		)
	}

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		data, err := json.Marshal(evt)
		if err != nil {
			l.zl.Warn("failed to marshal llm event", zap.Error(err))
			return
		}
		l.writeToFile(data)
	}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	if l == nil {
		return
	}
	_ = l.zl.Sync()
}

func (l *Logger) writeToFile(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Keep a single .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogReasoning(owner, taskID, content string) {
	l.Log(Event{
		Type:   EventTypeReasoning,
		Owner:  owner,
		TaskID: taskID,
		Data:   map[string]string{"content": content},
	})
}

func (l *Logger) LogInvocation(owner, taskID, action string, args map[string]any) {
	l.Log(Event{
		Type:   EventTypeInvocation,
		Owner:  owner,
		TaskID: taskID,
		Data: map[string]any{
			"action": action,
			"args":   args,
		},
	})
}

func (l *Logger) LogStep(owner, taskID string, index int, action, status, summary string, final bool) {
	l.Log(Event{
		Type:   EventTypeStep,
		Owner:  owner,
		TaskID: taskID,
		Data: map[string]any{
			"index":    index,
			"action":   action,
			"status":   status,
			"summary":  summary,
			"is_final": final,
		},
	})
}

func (l *Logger) LogPolicy(owner, taskID, action, effect, reason string) {
	l.Log(Event{
		Type:   EventTypePolicy,
		Owner:  owner,
		TaskID: taskID,
		Data: map[string]string{
			"action": action,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogCost(owner, taskID string, promptTokens, completionTokens int, model string) {
	l.Log(Event{
		Type:   EventTypeCost,
		Owner:  owner,
		TaskID: taskID,
		Data: map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
			"model":             model,
		},
	})
}

func (l *Logger) LogHeartbeat(activeTasks int64) {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]any{"status": "alive", "active_tasks": activeTasks},
	})
}

func (l *Logger) LogLLM(owner, taskID string, prompt any, response string) {
	l.Log(Event{
		Type:   EventTypeLLM,
		Owner:  owner,
		TaskID: taskID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}
