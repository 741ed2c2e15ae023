package grading

import (
	"regexp"
	"strconv"
	"strings"
)

// Parsed is the best-effort extraction of score/band tokens from a grader
// reply. The reply itself stays authoritative; these fields only enrich the
// submission log.
type Parsed struct {
	Score    int
	Band     string
	Feedback string
}

var digitsRe = regexp.MustCompile(`\d+`)

// ParseFeedback scans a reply for "Score:", "Band Level:" and "Feedback:"
// lines. Anything after the feedback marker is kept verbatim; a reply with
// no markers is returned whole as feedback.
func ParseFeedback(reply string) Parsed {
	lines := strings.Split(reply, "\n")
	var p Parsed
	var feedbackLines []string
	feedbackStarted := false

	for i, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(lower, "score:"):
			if m := digitsRe.FindString(line); m != "" {
				if n, err := strconv.Atoi(m); err == nil {
					p.Score = n
				}
			}
		case strings.HasPrefix(lower, "band level:"), strings.HasPrefix(lower, "band:"):
			if _, after, ok := strings.Cut(line, ":"); ok {
				p.Band = strings.TrimSpace(after)
			}
		case strings.HasPrefix(lower, "feedback:"):
			feedbackStarted = true
			if _, after, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(after) != "" {
				feedbackLines = append(feedbackLines, strings.TrimSpace(after))
			}
			feedbackLines = append(feedbackLines, lines[i+1:]...)
		}
		if feedbackStarted {
			break
		}
	}

	p.Feedback = strings.TrimSpace(strings.Join(feedbackLines, "\n"))
	if p.Feedback == "" && !feedbackStarted {
		p.Feedback = strings.TrimSpace(reply)
	}
	return p
}
