package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rahul/taskpilot/internal/actions"
)

// historyEntry is how one step is shown back to the model.
type historyEntry struct {
	Index int `json:"step"`
	Step
}

// RenderSystem builds the system framing: preamble, task variables, the
// available actions and any auxiliary data or documents they expose.
func RenderSystem(preamble string, vars map[string]string, descs []actions.Descriptor, aux map[string]map[string]any, docs []actions.Document) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(preamble))

	if len(vars) > 0 {
		b.WriteString("\n\n## Context\n")
		for _, k := range sortedKeys(vars) {
			fmt.Fprintf(&b, "- %s: %s\n", k, vars[k])
		}
	}

	b.WriteString("\n\n## Available Actions\n")
	if len(descs) == 0 {
		b.WriteString("(none)\n")
	}
	for _, d := range descs {
		if d.Category != "" {
			fmt.Fprintf(&b, "- %s [%s]: %s\n", d.Name, d.Category, d.Description)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
		}
		schema, err := json.Marshal(d.Schema.JSONSchema())
		if err == nil {
			fmt.Fprintf(&b, "  parameters: %s\n", schema)
		}
	}

	if len(aux) > 0 {
		b.WriteString("\n## Action Data\n")
		names := make([]string, 0, len(aux))
		for name := range aux {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			data, err := json.Marshal(aux[name])
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", name, data)
		}
	}

	if len(docs) > 0 {
		b.WriteString("\n## Workspace Documents\n")
		for _, d := range docs {
			fmt.Fprintf(&b, "- %s\n", d.Name)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderUser builds the user framing: the task, the step history, the new
// user input and the expected output format.
func RenderUser(task, input string, steps []Step, format string) string {
	var b strings.Builder
	b.WriteString("## Task\n")
	b.WriteString(strings.TrimSpace(task))

	b.WriteString("\n\n## History\n")
	if len(steps) == 0 {
		b.WriteString("No actions taken yet.")
	} else {
		entries := make([]historyEntry, len(steps))
		for i, s := range steps {
			entries[i] = historyEntry{Index: i + 1, Step: s}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			// Results that cannot be encoded still get their summaries shown.
			for i, s := range steps {
				fmt.Fprintf(&b, "%d. %s -> %s: %s\n", i+1, s.ActionName(), s.Outcome.Status, s.Outcome.Summary)
			}
		} else {
			b.Write(data)
		}
	}

	if strings.TrimSpace(input) != "" {
		b.WriteString("\n\n## User Input\n")
		b.WriteString(strings.TrimSpace(input))
	}

	b.WriteString("\n\n## Output Format\n")
	b.WriteString(strings.TrimSpace(format))
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
