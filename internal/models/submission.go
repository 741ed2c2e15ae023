package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission is an append-only record of one graded attempt. The composite
// unique index is the serialization point for attempt numbering: a concurrent
// writer that picked the same provisional attempt number fails the insert and
// retries with a fresh read.
type Submission struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	PlatformUserID  string `gorm:"index;not null;uniqueIndex:idx_subm_attempt"`
	RosterNumber    string
	GroupID         string `gorm:"type:uuid;index;not null"`
	AssignmentTitle string `gorm:"not null;uniqueIndex:idx_subm_attempt"`
	AttemptNumber   int    `gorm:"not null;uniqueIndex:idx_subm_attempt"`
	ArtifactPath    string `gorm:"not null"`
	ReportPath      string
	Checksum        string `gorm:"size:64"` // sha256 of the submitted file
	// Best-effort enrichment parsed from the grader's prose; not authoritative.
	Score     int
	Band      string
	Feedback  string
	CreatedAt time.Time
}

func (s *Submission) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
