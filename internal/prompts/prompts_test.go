package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	got := Render("Hello {assistant_role}, task: {task}", map[string]string{
		"assistant_role": "Coder",
		"task":           "build a calculator",
	})
	want := "Hello Coder, task: build a calculator"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	got := Render("Hello {assistant_role}, {examples}", map[string]string{
		"assistant_role": "Coder",
	})
	if !strings.Contains(got, "{examples}") {
		t.Errorf("unknown placeholder was removed: %q", got)
	}
}

func TestRenderNoPlaceholders(t *testing.T) {
	if got := Render("plain text", nil); got != "plain text" {
		t.Errorf("Render = %q", got)
	}
}

func TestDefaultLibraryTemplates(t *testing.T) {
	lib := Default()

	if !strings.Contains(lib.Role("assistant"), "{assistant_role}") {
		t.Error("assistant template missing assistant_role placeholder")
	}
	if !strings.Contains(lib.Role("user"), "<INFO>") {
		t.Error("user template missing the info sentinel instruction")
	}
	if !strings.Contains(lib.Phase("discussion"), "{task}") {
		t.Error("discussion phase missing task placeholder")
	}
	if lib.Phase("no-such-phase") != "" {
		t.Error("unknown phase should be empty")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	data := `
background: "You work at a software company."
phases:
  review: "Review the work on {task}."
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if lib.Background != "You work at a software company." {
		t.Errorf("background = %q", lib.Background)
	}
	if !strings.Contains(lib.Phase("review"), "Review the work") {
		t.Error("custom phase not loaded")
	}
	// Defaults survive the overlay.
	if lib.Phase("discussion") == "" {
		t.Error("default discussion phase lost")
	}
	if lib.Role("assistant") == "" {
		t.Error("default assistant role lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/prompts.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
