// Package storage materializes submission artifacts into a three-level
// namespace (assignment / group / roster id), written to a local root and
// mirrored into a remote object store. The local write is authoritative; the
// mirror is best effort.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// RemoteStore is the mirrored object-storage boundary. Container get-or-create
// is optimistic: two concurrent creators may both decide "not found" and
// create duplicates. Readers must treat same-named containers as equivalent;
// nothing here serializes creation through a lock.
type RemoteStore interface {
	// EnsureContainer lists containers named exactly `name` under parent and
	// returns the first match, creating one when none exists. The returned
	// string is the new parent reference.
	EnsureContainer(ctx context.Context, parent, name string) (string, error)
	// Put writes an object under the given container.
	Put(ctx context.Context, container, filename string, data []byte) error
}

type Artifact struct {
	AssignmentTitle string
	GroupName       string
	RosterNumber    string
	DisplayName     string
	Attempt         int
	Ext             string
	Data            []byte
}

// Result reports where the artifact landed. RemoteErr is non-nil when the
// mirror failed; the submission still proceeds on the local copy.
type Result struct {
	LocalPath string
	RemoteErr error
}

type Materializer struct {
	uploadsRoot string
	reportsRoot string
	remote      RemoteStore // nil disables mirroring
	// The remote client has no intrinsic timeout, so every mirror pass runs
	// under this outer bound.
	remoteTimeout time.Duration
}

func NewMaterializer(uploadsRoot, reportsRoot string, remote RemoteStore) *Materializer {
	return &Materializer{
		uploadsRoot:   uploadsRoot,
		reportsRoot:   reportsRoot,
		remote:        remote,
		remoteTimeout: 60 * time.Second,
	}
}

// SaveSubmission persists the student's uploaded answer sheet.
func (m *Materializer) SaveSubmission(ctx context.Context, art Artifact) (*Result, error) {
	return m.save(ctx, m.uploadsRoot, art)
}

// SaveReport persists the generated grading report.
func (m *Materializer) SaveReport(ctx context.Context, art Artifact) (*Result, error) {
	return m.save(ctx, m.reportsRoot, art)
}

func (m *Materializer) save(ctx context.Context, root string, art Artifact) (*Result, error) {
	segAssignment := SanitizeSegment(art.AssignmentTitle)
	segGroup := SanitizeSegment(art.GroupName)
	segRoster := SanitizeSegment(art.RosterNumber)
	filename := ArtifactFilename(art.RosterNumber, art.GroupName, art.DisplayName, art.AssignmentTitle, art.Attempt, art.Ext)

	// Local write first; its failure aborts the submission.
	dir := filepath.Join(root, segAssignment, segGroup, segRoster)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	localPath := filepath.Join(dir, filename)
	if err := os.WriteFile(localPath, art.Data, 0o644); err != nil {
		return nil, err
	}

	res := &Result{LocalPath: localPath}
	if m.remote != nil {
		res.RemoteErr = m.mirror(ctx, []string{filepath.Base(root), segAssignment, segGroup, segRoster}, filename, art.Data)
	}
	return res, nil
}

func (m *Materializer) mirror(ctx context.Context, segments []string, filename string, data []byte) error {
	mctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	defer cancel()

	parent := ""
	var err error
	for _, seg := range segments {
		parent, err = m.remote.EnsureContainer(mctx, parent, seg)
		if err != nil {
			return err
		}
	}
	return m.remote.Put(mctx, parent, filename, data)
}
