// Package grading drives the two-dimension AI grading of one submission.
// Each dimension runs against its own rubric under its own timeout, and a
// failure in one never cancels the other. The provider's replies are treated
// as opaque prose; token parsing is best-effort enrichment only.
package grading

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoRubric: the assignment title has no registered rubric pair. No
// provider call is made in that case.
var ErrNoRubric = errors.New("no rubric registered for assignment")

// TimeoutError reports that at least one dimension hit its deadline. It
// carries the elapsed time and which dimensions did complete.
type TimeoutError struct {
	Elapsed   time.Duration
	Completed map[Dimension]bool
}

func (e *TimeoutError) Error() string {
	done := 0
	for _, ok := range e.Completed {
		if ok {
			done++
		}
	}
	return fmt.Sprintf("grading timed out after %s (%d/2 dimensions completed)", e.Elapsed.Round(time.Second), done)
}

// ProviderError is a non-timeout provider failure. Retrying is pointless for
// this class of error, so the orchestrator never does.
type ProviderError struct {
	Dimension Dimension
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("grading provider rejected %s call: %v", e.Dimension, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Completer is the external AI completion boundary.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Input struct {
	AnswerText      string
	AssignmentTitle string
	DisplayName     string
}

// Result carries the two raw feedback texts, passed through unmodified.
type Result struct {
	LanguageFeedback string
	SubjectFeedback  string
}

type Orchestrator struct {
	registry *Registry
	client   Completer
	timeout  time.Duration
}

func NewOrchestrator(registry *Registry, client Completer, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Orchestrator{registry: registry, client: client, timeout: timeout}
}

type dimOutcome struct {
	dim      Dimension
	feedback string
	err      error
	timedOut bool
}

// Grade runs both rubric dimensions concurrently. Timeouts win over provider
// rejections when both occur, because the timeout error carries the
// partial-completion detail the user is told about.
func (o *Orchestrator) Grade(ctx context.Context, in Input) (*Result, error) {
	pair, ok := o.registry.Lookup(in.AssignmentTitle)
	if !ok {
		return nil, ErrNoRubric
	}

	start := time.Now()
	outcomes := make(chan dimOutcome, 2)
	go o.gradeDimension(ctx, DimLanguage, pair.Language, in, outcomes)
	go o.gradeDimension(ctx, DimSubject, pair.Subject, in, outcomes)

	res := &Result{}
	completed := map[Dimension]bool{DimLanguage: false, DimSubject: false}
	var timedOut bool
	var provErr *ProviderError
	for i := 0; i < 2; i++ {
		out := <-outcomes
		switch {
		case out.timedOut:
			timedOut = true
		case out.err != nil:
			if provErr == nil {
				provErr = &ProviderError{Dimension: out.dim, Err: out.err}
			}
		default:
			completed[out.dim] = true
			switch out.dim {
			case DimLanguage:
				res.LanguageFeedback = out.feedback
			case DimSubject:
				res.SubjectFeedback = out.feedback
			}
		}
	}

	if timedOut {
		return nil, &TimeoutError{Elapsed: time.Since(start), Completed: completed}
	}
	if provErr != nil {
		return nil, provErr
	}
	return res, nil
}

func (o *Orchestrator) gradeDimension(ctx context.Context, dim Dimension, rubric string, in Input, out chan<- dimOutcome) {
	dctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	system := fmt.Sprintf("You are an expert %s assessor evaluating student homework in an EMI course.", dim)
	user := renderPrompt(rubric, in.AssignmentTitle, in.DisplayName, in.AnswerText)

	feedback, err := o.client.Complete(dctx, system, user)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || dctx.Err() != nil {
			out <- dimOutcome{dim: dim, timedOut: true}
			return
		}
		out <- dimOutcome{dim: dim, err: err}
		return
	}
	out <- dimOutcome{dim: dim, feedback: feedback}
}
