package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/zaqqye/gradebot_v1/internal/config"
	"github.com/zaqqye/gradebot_v1/internal/models"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
	)
	// TranslateError lets callers match duplicate-key violations with
	// errors.Is(err, gorm.ErrDuplicatedKey) regardless of driver.
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Group{},
		&models.Identity{},
		&models.Submission{},
		&models.StaffUser{},
	)
}
