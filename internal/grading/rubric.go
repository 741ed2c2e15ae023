package grading

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dimension names one of the two independent rubric documents every graded
// assignment carries.
type Dimension string

const (
	DimLanguage Dimension = "language"
	DimSubject  Dimension = "subject"
)

// RubricPair holds the two rubric prompt templates for one assignment.
// Templates may reference {assignment_title}, {student_name} and
// {answer_text} placeholders.
type RubricPair struct {
	Language string
	Subject  string
}

// Registry maps assignment titles to their rubric pair. An assignment with
// no entry is never graded; the orchestrator fails fast instead of grading
// against a generic rubric.
type Registry struct {
	pairs map[string]RubricPair
}

type rubricFileEntry struct {
	Language string `json:"language"`
	Subject  string `json:"subject"`
}

// LoadRegistry reads the title->rubric mapping file and the rubric documents
// it references. Paths are resolved relative to baseDir.
func LoadRegistry(mapFile, baseDir string) (*Registry, error) {
	raw, err := os.ReadFile(mapFile)
	if err != nil {
		return nil, fmt.Errorf("read rubric map %s: %w", mapFile, err)
	}
	var entries map[string]rubricFileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse rubric map %s: %w", mapFile, err)
	}

	reg := &Registry{pairs: make(map[string]RubricPair, len(entries))}
	for title, entry := range entries {
		lang, err := readRubricDoc(baseDir, entry.Language)
		if err != nil {
			return nil, fmt.Errorf("assignment %q: %w", title, err)
		}
		subj, err := readRubricDoc(baseDir, entry.Subject)
		if err != nil {
			return nil, fmt.Errorf("assignment %q: %w", title, err)
		}
		reg.pairs[title] = RubricPair{Language: lang, Subject: subj}
	}
	return reg, nil
}

// NewRegistry builds a registry from in-memory pairs (tests, embedded setups).
func NewRegistry(pairs map[string]RubricPair) *Registry {
	cp := make(map[string]RubricPair, len(pairs))
	for k, v := range pairs {
		cp[k] = v
	}
	return &Registry{pairs: cp}
}

func (r *Registry) Lookup(assignmentTitle string) (RubricPair, bool) {
	pair, ok := r.pairs[assignmentTitle]
	return pair, ok
}

func (r *Registry) Titles() []string {
	out := make([]string, 0, len(r.pairs))
	for t := range r.pairs {
		out = append(out, t)
	}
	return out
}

func readRubricDoc(baseDir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("rubric document not set")
	}
	raw, err := os.ReadFile(filepath.Join(baseDir, name))
	if err != nil {
		return "", fmt.Errorf("read rubric %s: %w", name, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func renderPrompt(template, assignmentTitle, studentName, answerText string) string {
	out := strings.ReplaceAll(template, "{assignment_title}", assignmentTitle)
	out = strings.ReplaceAll(out, "{student_name}", studentName)
	out = strings.ReplaceAll(out, "{answer_text}", answerText)
	return out
}
