package repository

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edutrilha/classe-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Activity{},
		&models.ActivitySubmission{},
		&models.SubmissionGradeHistory{},
		&models.StudentGradeSummary{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return db
}
