package agent

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	formatFile   = "format.md"
	manifestFile = "order.yaml"
)

// DefaultPreamble frames the system message when no prompt files exist.
const DefaultPreamble = `You are an autonomous task agent. You complete the user's task one step at a time.
On every turn you choose exactly one action from the list of available actions, or no action when there is nothing left to do.
Read the history carefully: it contains the results of your previous actions and any feedback from the user.`

// DefaultOutputFormat tells the model how to answer when no format.md exists.
const DefaultOutputFormat = `Respond with a single JSON object and nothing else, using this shape:
{"action": {"name": "<action name>", "parameters": {<parameter name>: <value>}}, "is_final": <true|false>, "reasoning": "<why you chose this action>"}
Set "is_final" to true only when this action completes the task.
Do not wrap the JSON in Markdown.`

// defaultOrder is used when the prompts directory has no order.yaml.
var defaultOrder = map[string]int{
	"identity.md":     1,
	"soul.md":         2,
	"capabilities.md": 3,
	"directive.md":    4,
	"user.md":         5,
}

// PromptManager loads the framing text of the prompts from a directory of
// Markdown files.
type PromptManager struct {
	Directory string
}

type promptManifest struct {
	Sections []string `yaml:"sections"`
	Exclude  []string `yaml:"exclude"`
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// Preamble concatenates the prompt files that frame the system message.
func (pm *PromptManager) Preamble() (string, error) {
	if pm == nil || pm.Directory == "" {
		return DefaultPreamble, nil
	}

	entries, err := os.ReadDir(pm.Directory)
	if os.IsNotExist(err) {
		return DefaultPreamble, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read prompts directory: %v", err)
	}

	manifest, err := pm.manifest()
	if err != nil {
		return "", err
	}

	order := defaultOrder
	if len(manifest.Sections) > 0 {
		order = make(map[string]int, len(manifest.Sections))
		for i, name := range manifest.Sections {
			order[name] = i + 1
		}
	}
	excluded := map[string]bool{formatFile: true}
	for _, name := range manifest.Exclude {
		excluded[name] = true
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") || excluded[e.Name()] {
			continue
		}
		names = append(names, e.Name())
	}

	sort.Slice(names, func(i, j int) bool {
		oi, okI := order[names[i]]
		oj, okJ := order[names[j]]
		if okI && okJ {
			return oi < oj
		}
		if okI {
			return true
		}
		if okJ {
			return false
		}
		return names[i] < names[j]
	})

	var contents []string
	for _, name := range names {
		path := filepath.Join(pm.Directory, name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: Failed to read prompt file %s: %v", path, err)
			continue
		}
		contents = append(contents, strings.TrimSpace(string(data)))
	}

	if len(contents) == 0 {
		return "", fmt.Errorf("no prompt files found in %s", pm.Directory)
	}

	return strings.Join(contents, "\n\n---\n\n"), nil
}

// OutputFormat returns the instructions describing the decision format.
func (pm *PromptManager) OutputFormat() (string, error) {
	if pm == nil || pm.Directory == "" {
		return DefaultOutputFormat, nil
	}
	data, err := os.ReadFile(filepath.Join(pm.Directory, formatFile))
	if os.IsNotExist(err) {
		return DefaultOutputFormat, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read output format prompt: %v", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (pm *PromptManager) manifest() (promptManifest, error) {
	var m promptManifest
	data, err := os.ReadFile(filepath.Join(pm.Directory, manifestFile))
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("failed to read prompt manifest: %v", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse prompt manifest: %v", err)
	}
	return m, nil
}
