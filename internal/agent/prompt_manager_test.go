package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePromptFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPromptManager_Preamble(t *testing.T) {
	tempDir := t.TempDir()
	writePromptFiles(t, tempDir, map[string]string{
		"identity.md":     "Identity Content",
		"soul.md":         "Soul Content",
		"capabilities.md": "Capabilities Content",
		"user.md":         "User Content",
		"extra.md":        "Extra Content",
		"format.md":       "Format Content",
	})

	pm := NewPromptManager(tempDir)
	prompt, err := pm.Preamble()
	if err != nil {
		t.Fatal(err)
	}

	expectedParts := []string{
		"Identity Content",
		"Soul Content",
		"Capabilities Content",
		"User Content",
		"Extra Content",
	}

	for _, part := range expectedParts {
		if !strings.Contains(prompt, part) {
			t.Errorf("Prompt missing expected part: %s", part)
		}
	}
	if strings.Contains(prompt, "Format Content") {
		t.Error("format.md belongs to the output format, not the preamble")
	}

	// Verify order
	if strings.Index(prompt, "Identity Content") >= strings.Index(prompt, "Soul Content") {
		t.Error("Identity should be before Soul")
	}
	if strings.Index(prompt, "Soul Content") >= strings.Index(prompt, "Capabilities Content") {
		t.Error("Soul should be before Capabilities")
	}
	if strings.Index(prompt, "Capabilities Content") >= strings.Index(prompt, "User Content") {
		t.Error("Capabilities should be before User")
	}
	if strings.Index(prompt, "User Content") >= strings.Index(prompt, "Extra Content") {
		t.Error("Unlisted files should come last")
	}

	format, err := pm.OutputFormat()
	if err != nil {
		t.Fatal(err)
	}
	if format != "Format Content" {
		t.Errorf("Expected format.md content, got %q", format)
	}
}

func TestPromptManager_Manifest(t *testing.T) {
	tempDir := t.TempDir()
	writePromptFiles(t, tempDir, map[string]string{
		"a.md":       "A",
		"b.md":       "B",
		"c.md":       "C",
		"order.yaml": "sections: [c.md, a.md]\nexclude: [b.md]\n",
	})

	prompt, err := NewPromptManager(tempDir).Preamble()
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "C\n\n---\n\nA" {
		t.Errorf("Unexpected preamble: %q", prompt)
	}
}

func TestPromptManager_Defaults(t *testing.T) {
	pm := NewPromptManager(filepath.Join(t.TempDir(), "missing"))

	prompt, err := pm.Preamble()
	if err != nil {
		t.Fatal(err)
	}
	if prompt != DefaultPreamble {
		t.Errorf("Expected the default preamble, got %q", prompt)
	}

	format, err := pm.OutputFormat()
	if err != nil {
		t.Fatal(err)
	}
	if format != DefaultOutputFormat {
		t.Errorf("Expected the default output format, got %q", format)
	}

	var nilPM *PromptManager
	if p, _ := nilPM.Preamble(); p != DefaultPreamble {
		t.Error("A nil manager should use the default preamble")
	}
}

func TestPromptManager_EmptyDirectory(t *testing.T) {
	if _, err := NewPromptManager(t.TempDir()).Preamble(); err == nil {
		t.Error("Expected an error for a directory without prompt files")
	}
}
