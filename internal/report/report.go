// Package report renders the graded-submission report delivered back to the
// student. Feedback arrives as markdown-ish prose from the grader and is
// converted to HTML; short or error-shaped feedback is shown verbatim.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

type Input struct {
	StudentName      string
	RosterNumber     string
	AssignmentTitle  string
	AttemptNumber    int
	AnswerText       string
	LanguageFeedback string
	SubjectFeedback  string
}

// Render produces the full report document.
func Render(in Input) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"zh-Hant\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\" />\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\" />\n")
	b.WriteString("<title>Homework Grading Report</title>\n")
	b.WriteString("<style>\n" + reportCSS + "</style>\n</head>\n<body>\n")

	fmt.Fprintf(&b, "<h1>%s_%s_%s_attempt%d</h1>\n",
		html.EscapeString(in.StudentName),
		html.EscapeString(in.RosterNumber),
		html.EscapeString(in.AssignmentTitle),
		in.AttemptNumber,
	)

	b.WriteString("<section class=\"original-answer\">\n<h2>Original Answer</h2>\n<div>")
	b.WriteString(escapeWithBreaks(in.AnswerText))
	b.WriteString("</div>\n</section>\n")

	writeSection(&b, "language", "Language Assessment", in.LanguageFeedback)
	writeSection(&b, "subject", "Subject Assessment", in.SubjectFeedback)

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeSection(b *strings.Builder, class, heading, feedback string) {
	fmt.Fprintf(b, "<section class=\"grading-section %s\">\n<h2>%s</h2>\n<div class=\"feedback-content\">", class, heading)
	b.WriteString(feedbackHTML(feedback))
	b.WriteString("</div>\n</section>\n")
}

// feedbackHTML decides between verbatim and markdown rendering. Very short
// feedback is usually an error notice; markdown conversion would mangle it.
func feedbackHTML(feedback string) string {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		feedback = "no feedback returned"
	}
	if len(feedback) < 100 {
		return "<pre>" + html.EscapeString(feedback) + "</pre>"
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(feedback), &buf); err != nil {
		return "<pre>" + html.EscapeString(feedback) + "</pre>"
	}
	return buf.String()
}

// escapeWithBreaks escapes the answer text while keeping its line breaks
// visible as <br> tags.
func escapeWithBreaks(text string) string {
	for _, br := range []string{"<br>", "<br/>", "<BR/>"} {
		text = strings.ReplaceAll(text, br, "\n")
	}
	escaped := html.EscapeString(text)
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

const reportCSS = `
body {
    font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;
    background: linear-gradient(135deg, #e0eafc, #cfdef3);
    color: #2c3e50;
    margin: 40px auto;
    max-width: 960px;
    line-height: 1.75;
    padding: 0 20px;
}
h1, h2 {
    color: #1f3a93;
    margin-bottom: 0.75em;
    font-weight: 700;
}
h1 {
    border-bottom: 3px solid #2980b9;
    padding-bottom: 0.3em;
    font-size: 2.4rem;
}
h2 {
    border-bottom: 2px solid #3498db;
    padding-bottom: 0.35em;
    margin-top: 2.5em;
    font-size: 1.8rem;
}
section {
    background-color: #fff;
    border-radius: 16px;
    box-shadow: 0 8px 24px rgba(0,0,0,0.1);
    padding: 35px 40px;
    margin-bottom: 50px;
}
.original-answer {
    font-family: Consolas, "Courier New", monospace;
    font-size: 1rem;
    color: #34495e;
    white-space: pre-wrap;
    border-left: 8px solid #2980b9;
    padding-left: 20px;
    background-color: #f8f9fa;
}
.feedback-content {
    background-color: #f8f9fa;
    border-radius: 8px;
    padding: 20px;
    margin-top: 15px;
    border-left: 4px solid #3498db;
    word-wrap: break-word;
}
.feedback-content pre {
    background-color: #f4f4f4;
    padding: 10px;
    border-radius: 4px;
    white-space: pre-wrap;
    font-family: monospace;
}
.grading-section {
    border-left: 6px solid #e74c3c;
    padding-left: 20px;
    margin-bottom: 30px;
}
.grading-section.language { border-left-color: #3498db; }
.grading-section.language .feedback-content { border-left-color: #3498db; background-color: #f0f7ff; }
.grading-section.subject { border-left-color: #e67e22; }
.grading-section.subject .feedback-content { border-left-color: #e67e22; background-color: #fff8f0; }
`
