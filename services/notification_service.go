package services

import (
	"fmt"
	"log"
	"time"

	"faculty-appraisal-api/config"
	"faculty-appraisal-api/models"
	"faculty-appraisal-api/utils"

	"gorm.io/gorm"
)

// NotificationService persists in-app notifications and sends best-effort
// emails. Mail failures are logged and never fail the triggering operation.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) notify(userID int, appraisalID int, title, message, kind string) {
	notification := models.Notification{
		UserID:             userID,
		Title:              title,
		Message:            message,
		Type:               kind,
		RelatedAppraisalID: &appraisalID,
		CreateAt:           time.Now(),
	}
	if err := s.db.Create(&notification).Error; err != nil {
		log.Printf("Warning: failed to store notification for user %d: %v", userID, err)
		return
	}

	var user models.User
	if err := s.db.Select("email").Where("user_id = ?", userID).First(&user).Error; err != nil {
		return
	}
	if !utils.ValidateEmail(user.Email) {
		return
	}
	body := fmt.Sprintf("<p>%s</p><p>%s</p>", title, message)
	if err := config.SendMail([]string{user.Email}, title, body); err != nil {
		log.Printf("Warning: failed to email %s: %v", user.Email, err)
	}
}

// NotifySubmitted tells the owner's assigned verifier (and the department
// head) that a new appraisal is waiting for review.
func (s *NotificationService) NotifySubmitted(record *models.AppraisalRecord) {
	department := ""
	if record.User != nil {
		department = record.User.Department
	}
	title := "Appraisal submitted"
	message := fmt.Sprintf("Appraisal %s for year %d is awaiting verification.",
		record.ReferenceNumber, record.AppraisalYear)

	var assignments []models.CommitteeAssignment
	if err := s.db.Where("department = ?", department).Find(&assignments).Error; err == nil {
		for _, a := range assignments {
			if a.Covers(record.UserID) {
				s.notify(a.VerifierUserID, record.AppraisalID, title, message, "info")
			}
		}
	}
}

// NotifyVerified tells the owner their appraisal moved to verified.
func (s *NotificationService) NotifyVerified(record *models.AppraisalRecord) {
	s.notify(record.UserID, record.AppraisalID,
		"Appraisal verified",
		fmt.Sprintf("Your appraisal for year %d has been verified and awaits final approval.", record.AppraisalYear),
		"success")
}

// NotifyApproved tells the owner their appraisal reached final approval.
func (s *NotificationService) NotifyApproved(record *models.AppraisalRecord) {
	s.notify(record.UserID, record.AppraisalID,
		"Appraisal approved",
		fmt.Sprintf("Your appraisal for year %d has received final approval.", record.AppraisalYear),
		"success")
}
