// Package extract pulls the student fields and the answer body out of a
// submitted HTML answer sheet. The sheet layout is fixed by the course
// template: labelled name/number spans plus an answer paragraph.
package extract

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Labels used by the course answer-sheet template.
const (
	labelName   = "姓名："
	labelNumber = "學號："
	labelAnswer = "作答區："
)

var ErrNoAnswer = errors.New("answer sheet has no answer section")

type Content struct {
	StudentName     string
	StudentNumber   string
	AssignmentTitle string
	AnswerText      string
}

// Parse reads an answer sheet. The document title doubles as the assignment
// title; callers fall back to the file name when it is empty.
func Parse(raw []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	c := &Content{
		StudentName:     textAfterLabel(doc, labelName, "span"),
		StudentNumber:   textAfterLabel(doc, labelNumber, "span"),
		AssignmentTitle: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	answer := findLabel(doc, labelAnswer)
	if answer.Length() == 0 {
		return nil, ErrNoAnswer
	}
	para := answer.NextAllFiltered("p").First()
	if para.Length() == 0 {
		para = answer.Parent().Find("p").First()
	}
	if para.Length() == 0 {
		return nil, ErrNoAnswer
	}
	// Keep line structure: <br> becomes a newline before flattening to text.
	para.Find("br").ReplaceWithHtml("\n")
	c.AnswerText = strings.TrimSpace(para.Text())

	return c, nil
}

func findLabel(doc *goquery.Document, label string) *goquery.Selection {
	return doc.Find("label").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == label
	}).First()
}

func textAfterLabel(doc *goquery.Document, label, sibling string) string {
	sel := findLabel(doc, label)
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.NextAllFiltered(sibling).First().Text())
}
