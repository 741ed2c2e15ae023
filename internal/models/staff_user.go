package models

import (
	"time"
)

// StaffUser is an ops/admin API account. Students never get one; they exist
// only as roster Identities bound to Discord.
type StaffUser struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"uniqueIndex"`
	FullName  string
	Email     string `gorm:"uniqueIndex"`
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
