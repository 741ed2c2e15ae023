package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity is one student roster row. PlatformUserID is the Discord user id;
// it is set exactly once, on first successful bind, and never reassigned
// outside of manual correction.
type Identity struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	DisplayName    string  `gorm:"not null"`
	RosterNumber   *string `gorm:"index"`
	PlatformUserID *string `gorm:"uniqueIndex"`
	GroupID        string  `gorm:"type:uuid;index;not null"`
	SecretHash     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Group Group `gorm:"foreignKey:GroupID"`
}

func (i *Identity) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Bound reports whether this roster row is already linked to a platform user.
func (i *Identity) Bound() bool {
	return i.PlatformUserID != nil && *i.PlatformUserID != ""
}
