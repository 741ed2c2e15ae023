package grading

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeCompleter scripts per-dimension behavior keyed on the system prompt,
// which names the dimension.
type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	complete func(ctx context.Context, system, user string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.complete(ctx, system, user)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testRegistry() *Registry {
	return NewRegistry(map[string]RubricPair{
		"Essay 1": {
			Language: "Grade the language of {student_name} on {assignment_title}:\n{answer_text}",
			Subject:  "Grade the content of {student_name} on {assignment_title}:\n{answer_text}",
		},
	})
}

func TestGradeBothDimensions(t *testing.T) {
	fake := &fakeCompleter{complete: func(_ context.Context, system, user string) (string, error) {
		if !strings.Contains(user, "Alice") || !strings.Contains(user, "my answer") {
			t.Errorf("prompt placeholders not rendered: %q", user)
		}
		if strings.Contains(system, "language") {
			return "language ok", nil
		}
		return "subject ok", nil
	}}
	o := NewOrchestrator(testRegistry(), fake, time.Second)

	res, err := o.Grade(context.Background(), Input{
		AnswerText:      "my answer",
		AssignmentTitle: "Essay 1",
		DisplayName:     "Alice",
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.LanguageFeedback != "language ok" || res.SubjectFeedback != "subject ok" {
		t.Fatalf("feedback routed to wrong dimension: %+v", res)
	}
	if got := fake.callCount(); got != 2 {
		t.Fatalf("provider calls: got %d, want 2", got)
	}
}

func TestGradeNoRubricSkipsProvider(t *testing.T) {
	fake := &fakeCompleter{complete: func(context.Context, string, string) (string, error) {
		return "should not happen", nil
	}}
	o := NewOrchestrator(testRegistry(), fake, time.Second)

	_, err := o.Grade(context.Background(), Input{AssignmentTitle: "Unknown"})
	if !errors.Is(err, ErrNoRubric) {
		t.Fatalf("got %v, want ErrNoRubric", err)
	}
	if got := fake.callCount(); got != 0 {
		t.Fatalf("provider calls: got %d, want 0", got)
	}
}

func TestGradeTimeoutCarriesPartialCompletion(t *testing.T) {
	fake := &fakeCompleter{complete: func(ctx context.Context, system, _ string) (string, error) {
		if strings.Contains(system, "language") {
			return "language ok", nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	}}
	o := NewOrchestrator(testRegistry(), fake, 20*time.Millisecond)

	_, err := o.Grade(context.Background(), Input{AssignmentTitle: "Essay 1"})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *TimeoutError", err)
	}
	if !te.Completed[DimLanguage] || te.Completed[DimSubject] {
		t.Fatalf("completion map wrong: %+v", te.Completed)
	}
}

func TestGradeTimeoutWinsOverRejection(t *testing.T) {
	fake := &fakeCompleter{complete: func(ctx context.Context, system, _ string) (string, error) {
		if strings.Contains(system, "language") {
			return "", errors.New("rate limited")
		}
		<-ctx.Done()
		return "", ctx.Err()
	}}
	o := NewOrchestrator(testRegistry(), fake, 20*time.Millisecond)

	_, err := o.Grade(context.Background(), Input{AssignmentTitle: "Essay 1"})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *TimeoutError", err)
	}
}

func TestGradeProviderRejection(t *testing.T) {
	fake := &fakeCompleter{complete: func(_ context.Context, system, _ string) (string, error) {
		if strings.Contains(system, "subject") {
			return "", errors.New("model overloaded")
		}
		return "language ok", nil
	}}
	o := NewOrchestrator(testRegistry(), fake, time.Second)

	_, err := o.Grade(context.Background(), Input{AssignmentTitle: "Essay 1"})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *ProviderError", err)
	}
	if pe.Dimension != DimSubject {
		t.Fatalf("dimension: got %s, want subject", pe.Dimension)
	}
}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantScore int
		wantBand  string
		wantFb    string
	}{
		{
			name:      "full reply",
			reply:     "Score: 85\nBand Level: B2\nFeedback: Good structure overall.",
			wantScore: 85,
			wantBand:  "B2",
			wantFb:    "Good structure overall.",
		},
		{
			name:      "score only",
			reply:     "Score: 72\nThe essay drifts off topic.",
			wantScore: 72,
			wantFb:    "Score: 72\nThe essay drifts off topic.",
		},
		{
			name:   "free prose",
			reply:  "A thoughtful response with minor grammar slips.",
			wantFb: "A thoughtful response with minor grammar slips.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := ParseFeedback(tt.reply)
			if fb.Score != tt.wantScore {
				t.Errorf("score: got %d, want %d", fb.Score, tt.wantScore)
			}
			if fb.Band != tt.wantBand {
				t.Errorf("band: got %q, want %q", fb.Band, tt.wantBand)
			}
			if fb.Feedback != tt.wantFb {
				t.Errorf("feedback: got %q, want %q", fb.Feedback, tt.wantFb)
			}
		})
	}
}
