package services

import (
	"testing"
	"time"

	"faculty-appraisal-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.AppraisalRecord{},
		&models.CommitteeAssignment{},
		&models.AppraisalStatusHistory{},
		&models.AuditLog{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id int, name, role, department string) models.User {
	t.Helper()

	now := time.Now()
	user := models.User{
		UserID:      id,
		UserFname:   name,
		Email:       name + "@example.edu",
		Role:        role,
		Designation: "Assistant Professor",
		Department:  department,
		IsActive:    true,
		CreateAt:    &now,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %d: %v", id, err)
	}
	return user
}
