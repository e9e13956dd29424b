package services

import (
	"faculty-appraisal-api/models"

	"gorm.io/gorm"
)

// GetDepartmentRoster resolves a department to its current active faculty
// members in stable user_id order. The order is what makes the committee
// partition reproducible.
func GetDepartmentRoster(db *gorm.DB, department string) ([]models.User, error) {
	var roster []models.User
	err := db.Where("department = ? AND role = ? AND is_active = ? AND delete_at IS NULL",
		department, models.RoleFaculty, true).
		Order("user_id ASC").
		Find(&roster).Error
	if err != nil {
		return nil, storeErr("roster lookup", err)
	}
	return roster, nil
}
