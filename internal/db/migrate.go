package db

import (
	"feedback_system/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"
	"gorm.io/gorm" // GORM ORM library
)

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// Users first so the feedback foreign key has a target
	if err := db.AutoMigrate(&domain.User{}, &domain.Feedback{}); err != nil {
		logrus.WithError(err).Error("migration failed")
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
