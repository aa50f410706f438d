package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rahul/taskpilot/internal/actions"
)

// maxReportResult is counted in characters, not bytes.
const maxReportResult = 3500

// FormatStep renders a step for a chat message: the summary, then the result
// when it adds something.
func FormatStep(s Step) string {
	var b strings.Builder
	switch s.Outcome.Status {
	case actions.StatusFailure:
		fmt.Fprintf(&b, "❌ %s", s.Outcome.Summary)
		if s.Outcome.Error != "" && s.Outcome.Error != s.Outcome.Summary {
			fmt.Fprintf(&b, "\n%s", s.Outcome.Error)
		}
		return b.String()
	case actions.StatusAwaitingInput:
		b.WriteString("❓ ")
	case actions.StatusInProgress:
		b.WriteString("⏳ ")
	}
	b.WriteString(s.Outcome.Summary)

	result := resultText(s.Outcome.Result)
	if result != "" && result != s.Outcome.Summary && s.Outcome.Status != actions.StatusAwaitingInput {
		result = truncate(result, maxReportResult)
		fmt.Fprintf(&b, "\n\n%s", result)
	}
	for _, d := range s.Outcome.Documents {
		fmt.Fprintf(&b, "\n📎 %s", d.Name)
	}
	return b.String()
}

func resultText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + "\n... (truncated)"
		}
		n++
	}
	return s
}
