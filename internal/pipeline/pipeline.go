// Package pipeline runs one submission end to end: identity gate, attempt
// sequencing, grading, report generation, artifact materialization, and the
// final append to the roster store. Stages execute strictly in that order;
// nothing is recorded for a submission that fails before the append, so a
// crash mid-pipeline simply lets the student resubmit.
package pipeline

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zaqqye/gradebot_v1/internal/extract"
	"github.com/zaqqye/gradebot_v1/internal/grading"
	"github.com/zaqqye/gradebot_v1/internal/models"
	"github.com/zaqqye/gradebot_v1/internal/report"
	"github.com/zaqqye/gradebot_v1/internal/storage"
	"github.com/zaqqye/gradebot_v1/internal/store"
	"github.com/zaqqye/gradebot_v1/internal/utils"
	"github.com/zaqqye/gradebot_v1/internal/ws"
)

var (
	// ErrNotBound: the platform user has no roster identity yet.
	ErrNotBound = errors.New("platform user is not bound to a roster identity")
	// ErrBusy: the user already has a submission in flight.
	ErrBusy = errors.New("a submission is already being processed for this user")
)

type Pipeline struct {
	store  *store.Store
	grader *grading.Orchestrator
	mat    *storage.Materializer
	hub    *ws.EventHub

	mu       sync.Mutex
	inflight map[string]struct{} // keyed by platform id, torn down on completion
}

func New(s *store.Store, grader *grading.Orchestrator, mat *storage.Materializer, hub *ws.EventHub) *Pipeline {
	return &Pipeline{
		store:    s,
		grader:   grader,
		mat:      mat,
		hub:      hub,
		inflight: make(map[string]struct{}),
	}
}

type Outcome struct {
	Identity   *models.Identity
	Submission *models.Submission
	ReportPath string
	// MirrorFailed is set when the remote mirror failed but the submission
	// was still recorded on the local artifact.
	MirrorFailed bool
}

// Process handles one uploaded answer sheet for a bound platform user.
func (p *Pipeline) Process(ctx context.Context, platformID, filename string, data []byte) (*Outcome, error) {
	if !p.acquire(platformID) {
		return nil, ErrBusy
	}
	defer p.release(platformID)

	identity, err := p.store.FindByPlatformID(platformID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotBound
		}
		return nil, err
	}

	content, err := extract.Parse(data)
	if err != nil {
		return nil, err
	}
	title := content.AssignmentTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	// Provisional attempt number; the append below re-validates it.
	max, err := p.store.MaxAttempt(platformID, title)
	if err != nil {
		return nil, err
	}
	attempt := max + 1

	p.hub.Broadcast(ws.Event{
		Type:            ws.EventSubmissionReceived,
		PlatformUserID:  platformID,
		Group:           identity.Group.Name,
		AssignmentTitle: title,
		Attempt:         attempt,
	})

	graded, err := p.grader.Grade(ctx, grading.Input{
		AnswerText:      content.AnswerText,
		AssignmentTitle: title,
		DisplayName:     identity.DisplayName,
	})
	if err != nil {
		p.hub.Broadcast(ws.Event{
			Type:            ws.EventSubmissionRejected,
			PlatformUserID:  platformID,
			AssignmentTitle: title,
			Detail:          err.Error(),
		})
		return nil, err
	}
	p.hub.Broadcast(ws.Event{
		Type:            ws.EventSubmissionGraded,
		PlatformUserID:  platformID,
		AssignmentTitle: title,
		Attempt:         attempt,
	})

	rosterNumber := content.StudentNumber
	if identity.RosterNumber != nil && *identity.RosterNumber != "" {
		rosterNumber = *identity.RosterNumber
	}

	reportHTML := report.Render(report.Input{
		StudentName:      identity.DisplayName,
		RosterNumber:     rosterNumber,
		AssignmentTitle:  title,
		AttemptNumber:    attempt,
		AnswerText:       content.AnswerText,
		LanguageFeedback: graded.LanguageFeedback,
		SubjectFeedback:  graded.SubjectFeedback,
	})

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".html"
	}
	base := storage.Artifact{
		AssignmentTitle: title,
		GroupName:       identity.Group.Name,
		RosterNumber:    rosterNumber,
		DisplayName:     identity.DisplayName,
		Attempt:         attempt,
	}

	upload := base
	upload.Ext = ext
	upload.Data = data
	uploadRes, err := p.mat.SaveSubmission(ctx, upload)
	if err != nil {
		// Local write failure is fatal; no submission row is persisted.
		return nil, err
	}

	rep := base
	rep.Ext = ".html"
	rep.Data = []byte(reportHTML)
	reportRes, err := p.mat.SaveReport(ctx, rep)
	if err != nil {
		return nil, err
	}

	mirrorFailed := p.reportMirror(platformID, title, uploadRes.RemoteErr) || p.reportMirror(platformID, title, reportRes.RemoteErr)

	parsed := grading.ParseFeedback(graded.LanguageFeedback)
	sub := &models.Submission{
		PlatformUserID:  platformID,
		RosterNumber:    rosterNumber,
		GroupID:         identity.GroupID,
		AssignmentTitle: title,
		AttemptNumber:   attempt,
		ArtifactPath:    uploadRes.LocalPath,
		ReportPath:      reportRes.LocalPath,
		Checksum:        utils.SHA256Hex(data),
		Score:           parsed.Score,
		Band:            parsed.Band,
		Feedback:        parsed.Feedback,
	}
	if err := p.store.AppendSubmission(sub); err != nil {
		return nil, err
	}

	p.hub.Broadcast(ws.Event{
		Type:            ws.EventSubmissionStored,
		PlatformUserID:  platformID,
		Group:           identity.Group.Name,
		AssignmentTitle: title,
		Attempt:         sub.AttemptNumber,
	})

	return &Outcome{
		Identity:     identity,
		Submission:   sub,
		ReportPath:   reportRes.LocalPath,
		MirrorFailed: mirrorFailed,
	}, nil
}

// reportMirror logs a failed mirror pass and raises the ops notification.
// Mirror failures are non-fatal: the local artifact already exists.
func (p *Pipeline) reportMirror(platformID, title string, remoteErr error) bool {
	if remoteErr == nil {
		return false
	}
	log.Printf("pipeline: remote mirror failed for %s / %s: %v", platformID, title, remoteErr)
	p.hub.Broadcast(ws.Event{
		Type:            ws.EventMirrorFailed,
		PlatformUserID:  platformID,
		AssignmentTitle: title,
		Detail:          remoteErr.Error(),
	})
	return true
}

func (p *Pipeline) acquire(platformID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[platformID]; busy {
		return false
	}
	p.inflight[platformID] = struct{}{}
	return true
}

func (p *Pipeline) release(platformID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, platformID)
}
