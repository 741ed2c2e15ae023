package report

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	long := strings.Repeat("The essay shows **solid** command of tense. ", 5)
	out := Render(Input{
		StudentName:      "王小明",
		RosterNumber:     "B11109001",
		AssignmentTitle:  "週記作業一",
		AttemptNumber:    2,
		AnswerText:       "line one\nline two",
		LanguageFeedback: long,
		SubjectFeedback:  "Timed out.",
	})

	if !strings.Contains(out, "<h1>王小明_B11109001_週記作業一_attempt2</h1>") {
		t.Error("heading missing or malformed")
	}
	if !strings.Contains(out, "line one<br>line two") {
		t.Error("answer line breaks not preserved")
	}
	// Long feedback goes through markdown conversion.
	if !strings.Contains(out, "<strong>solid</strong>") {
		t.Error("long feedback not rendered as markdown")
	}
	// Short feedback stays verbatim in a pre block.
	if !strings.Contains(out, "<pre>Timed out.</pre>") {
		t.Error("short feedback not rendered verbatim")
	}
	for _, class := range []string{"grading-section language", "grading-section subject"} {
		if !strings.Contains(out, class) {
			t.Errorf("section class %q missing", class)
		}
	}
}

func TestRenderEscapesStudentInput(t *testing.T) {
	out := Render(Input{
		StudentName: "<script>x</script>",
		AnswerText:  "a <b>bold</b> claim",
	})
	if strings.Contains(out, "<script>") {
		t.Error("student name not escaped")
	}
	if strings.Contains(out, "<b>bold</b>") {
		t.Error("answer html not escaped")
	}
}

func TestRenderEmptyFeedback(t *testing.T) {
	out := Render(Input{AssignmentTitle: "Essay 1"})
	if !strings.Contains(out, "no feedback returned") {
		t.Error("empty feedback placeholder missing")
	}
}

func TestRenderMarkdownTable(t *testing.T) {
	fb := "| Criterion | Score |\n|---|---|\n| Grammar | 8 |\n| Vocabulary | 7 |\n\n" +
		"Overall the writing is clear and well organized across all criteria."
	out := Render(Input{LanguageFeedback: fb})
	if !strings.Contains(out, "<table>") {
		t.Error("markdown table not rendered")
	}
}
