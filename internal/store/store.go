// Package store is the single source of truth for roster identity and
// attempt history. All mutating calls are transactional; partial writes are
// never visible to callers.
package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/zaqqye/gradebot_v1/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict is a uniqueness violation raised by a concurrent writer.
	ErrConflict = errors.New("conflicting concurrent write")
	// ErrAlreadyBound means the identity already carries a platform user id.
	ErrAlreadyBound = errors.New("identity already bound")
	// ErrSequencingConflict is surfaced when the attempt-number insert lost
	// the race twice in a row.
	ErrSequencingConflict = errors.New("attempt sequencing conflict")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateGroup(name string) (*models.Group, error) {
	grp := models.Group{Name: name}
	if err := s.db.Create(&grp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return &grp, nil
}

func (s *Store) FindGroup(name string) (*models.Group, error) {
	var grp models.Group
	if err := s.db.Where("name = ?", name).First(&grp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &grp, nil
}

// GetOrCreateGroup resolves a group by name, creating it on first reference.
// A concurrent creator losing the race falls back to the winner's row.
func (s *Store) GetOrCreateGroup(name string) (*models.Group, error) {
	grp, err := s.FindGroup(name)
	if err == nil {
		return grp, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	grp, err = s.CreateGroup(name)
	if errors.Is(err, ErrAlreadyExists) {
		return s.FindGroup(name)
	}
	return grp, err
}

func (s *Store) CreateIdentity(identity *models.Identity) error {
	if err := s.db.Create(identity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) FindByPlatformID(platformID string) (*models.Identity, error) {
	var identity models.Identity
	err := s.db.Preload("Group").Where("platform_user_id = ?", platformID).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &identity, nil
}

// FindByRosterNumber returns every roster row carrying the number, optionally
// scoped to one group. Callers decide how to treat multiple matches; the
// binder fails closed on ambiguity.
func (s *Store) FindByRosterNumber(number string, groupID string) ([]models.Identity, error) {
	q := s.db.Preload("Group").Where("roster_number = ?", number)
	if groupID != "" {
		q = q.Where("group_id = ?", groupID)
	}
	var identities []models.Identity
	if err := q.Find(&identities).Error; err != nil {
		return nil, err
	}
	return identities, nil
}

// BindPlatformID links a platform user id to an identity whose current
// platform_user_id is null. The null check and the write are one statement,
// so two racing binders cannot both succeed. A uniqueness violation on the
// platform id (same user binding two rows concurrently) maps to ErrConflict.
func (s *Store) BindPlatformID(identityID, platformID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Identity{}).
			Where("id = ? AND platform_user_id IS NULL", identityID).
			Update("platform_user_id", platformID)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyBound
		}
		return nil
	})
}

func (s *Store) MaxAttempt(platformID, assignmentTitle string) (int, error) {
	var max int
	err := s.db.Model(&models.Submission{}).
		Where("platform_user_id = ? AND assignment_title = ?", platformID, assignmentTitle).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

// AppendSubmission inserts the submission row. The attempt number the caller
// computed is provisional: if another submission claimed it first, the unique
// index rejects the insert and we retry once with a fresh MaxAttempt read.
func (s *Store) AppendSubmission(sub *models.Submission) error {
	err := s.db.Create(sub).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	max, rerr := s.MaxAttempt(sub.PlatformUserID, sub.AssignmentTitle)
	if rerr != nil {
		return rerr
	}
	sub.ID = ""
	sub.AttemptNumber = max + 1
	if err := s.db.Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSequencingConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListSubmissions(platformID string) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.db.Where("platform_user_id = ?", platformID).
		Order("assignment_title, attempt_number").
		Find(&subs).Error
	return subs, err
}
