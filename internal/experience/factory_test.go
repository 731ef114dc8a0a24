package experience

import (
	"os"
	"path/filepath"
	"testing"
)

const validScript = `
id: welcome-tour
title: Welcome Tour
skippable: true
cast:
  - role: narrator
    type: actor
    name: Narrator
scenes:
  - id: s1
    events:
      - id: e1
        action: dialog
        actor: narrator
        type: script
        script:
          dialog: "Hello."
`

func writeScript(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFactoryLoadsDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "welcome.yaml", validScript)
	writeScript(t, dir, "notes.txt", "not a script")

	f, err := NewFactory(dir)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	defer f.Close()

	exp, ok := f.Get("welcome-tour")
	if !ok {
		t.Fatal("welcome-tour not loaded")
	}
	if exp.Title != "Welcome Tour" || !exp.Skippable {
		t.Errorf("exp = %+v", exp)
	}
	if len(f.List()) != 1 {
		t.Errorf("List() = %d entries, want 1", len(f.List()))
	}
}

func TestFactorySkipsInvalidDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "good.yaml", validScript)
	writeScript(t, dir, "no-id.yaml", "title: Missing ID\nscenes:\n  - id: s1\n    events:\n      - id: e1\n        action: dialog\n")
	writeScript(t, dir, "no-scenes.yaml", "id: empty\ntitle: Empty\n")
	writeScript(t, dir, "broken.yaml", "id: [unclosed")

	f, err := NewFactory(dir)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	defer f.Close()

	if len(f.List()) != 1 {
		t.Errorf("List() = %d entries, want 1 (invalid scripts skipped)", len(f.List()))
	}
}

func TestFactoryMissingDirIsEmpty(t *testing.T) {
	f, err := NewFactory(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir must not fail: %v", err)
	}
	defer f.Close()
	if len(f.List()) != 0 {
		t.Errorf("List() = %d entries, want 0", len(f.List()))
	}
}

func TestStringListScalarAndSequence(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "lines.yaml", `
id: lines
scenes:
  - id: s1
    events:
      - id: e1
        action: dialog
        actor: narrator
        type: script
        script:
          dialog:
            - "first visit"
            - "second visit"
      - id: e2
        action: dialog
        actor: narrator
        type: script
        script:
          dialog: "always the same"
`)
	f, err := NewFactory(dir)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	defer f.Close()

	exp, ok := f.Get("lines")
	if !ok {
		t.Fatal("lines not loaded")
	}
	events := exp.Scenes[0].Events
	if got := events[0].Script.Dialog.At(1); got != "second visit" {
		t.Errorf("sequence dialog At(1) = %q", got)
	}
	if got := events[1].Script.Dialog.At(3); got != "always the same" {
		t.Errorf("scalar dialog = %q", got)
	}
}
