package grading

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lang.md", "language rubric for {assignment_title}\n")
	writeFile(t, dir, "subj.md", "subject rubric\n")
	mapFile := filepath.Join(dir, "rubrics.json")
	writeFile(t, dir, "rubrics.json", `{"Essay 1": {"language": "lang.md", "subject": "subj.md"}}`)

	reg, err := LoadRegistry(mapFile, dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	pair, ok := reg.Lookup("Essay 1")
	if !ok {
		t.Fatal("Essay 1 not registered")
	}
	if pair.Language != "language rubric for {assignment_title}" {
		t.Errorf("language rubric: got %q", pair.Language)
	}
	if pair.Subject != "subject rubric" {
		t.Errorf("subject rubric: got %q", pair.Subject)
	}
	if _, ok := reg.Lookup("Essay 2"); ok {
		t.Error("unregistered title resolved")
	}
}

func TestLoadRegistryMissingDoc(t *testing.T) {
	dir := t.TempDir()
	mapFile := filepath.Join(dir, "rubrics.json")
	writeFile(t, dir, "rubrics.json", `{"Essay 1": {"language": "missing.md", "subject": "missing.md"}}`)

	if _, err := LoadRegistry(mapFile, dir); err == nil {
		t.Fatal("missing rubric document must fail the load")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
