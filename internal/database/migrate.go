package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/recipebox/internal/model"
)

// RunMigrations brings the schema up to date using GORM auto-migration
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Recipe{}); err != nil {
		return fmt.Errorf("failed to migrate recipes: %w", err)
	}
	return nil
}
