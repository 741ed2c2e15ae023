package extract

import (
	"errors"
	"testing"
)

const sampleSheet = `<!DOCTYPE html>
<html>
<head><title>週記作業一</title></head>
<body>
  <div><label>姓名：</label><span>王小明</span></div>
  <div><label>學號：</label><span>B11109001</span></div>
  <div>
    <label>作答區：</label>
    <p>This week I studied Go.<br>It went well.</p>
  </div>
</body>
</html>`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleSheet))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.StudentName != "王小明" {
		t.Errorf("name: got %q", c.StudentName)
	}
	if c.StudentNumber != "B11109001" {
		t.Errorf("number: got %q", c.StudentNumber)
	}
	if c.AssignmentTitle != "週記作業一" {
		t.Errorf("title: got %q", c.AssignmentTitle)
	}
	want := "This week I studied Go.\nIt went well."
	if c.AnswerText != want {
		t.Errorf("answer: got %q, want %q", c.AnswerText, want)
	}
}

func TestParseMissingAnswer(t *testing.T) {
	html := `<html><head><title>T</title></head><body>
	  <div><label>姓名：</label><span>王小明</span></div>
	</body></html>`
	if _, err := Parse([]byte(html)); !errors.Is(err, ErrNoAnswer) {
		t.Fatalf("got %v, want ErrNoAnswer", err)
	}
}

func TestParseAnswerInsideLabelParent(t *testing.T) {
	// Some sheets place the answer paragraph before the label inside the same
	// container, so it is not a following sibling of the label.
	html := `<html><body>
	  <div>
	    <p>Nested answer.</p>
	    <label>作答區：</label>
	  </div>
	</body></html>`
	c, err := Parse([]byte(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.AnswerText != "Nested answer." {
		t.Errorf("answer: got %q", c.AnswerText)
	}
}

func TestParseMissingOptionalFields(t *testing.T) {
	html := `<html><body>
	  <label>作答區：</label>
	  <p>Only an answer.</p>
	</body></html>`
	c, err := Parse([]byte(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.StudentName != "" || c.StudentNumber != "" || c.AssignmentTitle != "" {
		t.Errorf("optional fields should be empty: %+v", c)
	}
	if c.AnswerText != "Only an answer." {
		t.Errorf("answer: got %q", c.AnswerText)
	}
}
