package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// fencePattern captures everything between the opening fence (with an
// optional language tag) and the last closing fence.
var fencePattern = regexp.MustCompile("(?s)^```[ \t]*[A-Za-z0-9_+\\-]*(.*)```")

// ParseResponse extracts the decision from a model response.
func ParseResponse(resp *llms.ContentResponse) (Decision, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return Decision{}, ErrEmptyResponse
	}
	return ParseDecision(resp.Choices[0].Content)
}

// ParseDecision decodes the model text, tolerating a Markdown code fence
// around the JSON object.
func ParseDecision(text string) (Decision, error) {
	body := StripFence(text)
	if body == "" {
		return Decision{}, ErrEmptyResponse
	}
	if !strings.HasPrefix(body, "{") {
		return Decision{}, fmt.Errorf("%w: not a JSON object", ErrInvalidDecision)
	}

	var d Decision
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&d); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	if d.Action != nil && d.Action.Parameters == nil {
		d.Action.Parameters = map[string]any{}
	}
	return d, nil
}

// StripFence removes a leading Markdown fence and its language tag. Text that
// does not start with a fence is returned trimmed.
func StripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	// Unterminated fence: drop the opening marker and tag only.
	rest := strings.TrimLeft(strings.TrimPrefix(trimmed, "```"), " \t")
	rest = strings.TrimLeft(rest, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_+-")
	return strings.TrimSpace(rest)
}

// fallbackDecision shows the raw model text to the user when it could not be
// decoded.
func fallbackDecision(raw string, cause error) Decision {
	return Decision{
		Action: &Invocation{
			Name:       fallbackActionName,
			Parameters: map[string]any{"message": raw},
		},
		IsFinal:   false,
		Reasoning: fmt.Sprintf("Failed to parse the decision: %v", cause),
	}
}
