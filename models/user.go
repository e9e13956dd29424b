package models

import (
	"time"
)

// Role values carried in JWT claims and snapshotted onto appraisal records.
const (
	RoleFaculty       = "faculty"
	RoleVerifier      = "verifier"
	RoleHOD           = "hod"
	RoleDean          = "dean"
	RoleAssociateDean = "associate_dean"
	RoleDirector      = "director"
	RoleAdmin         = "admin"
)

type User struct {
	UserID      int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname   string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname   string     `gorm:"column:user_lname" json:"user_lname"`
	Email       string     `gorm:"column:email;unique" json:"email"`
	Password    string     `gorm:"column:password" json:"-"`
	Role        string     `gorm:"column:role" json:"role"`
	Designation string     `gorm:"column:designation" json:"designation"`
	Department  string     `gorm:"column:department" json:"department"`
	IsActive    bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreateAt    *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name for committee and notification labels.
func (u *User) FullName() string {
	if u.UserLname == "" {
		return u.UserFname
	}
	return u.UserFname + " " + u.UserLname
}

// EvaluatorRoles lists the roles that review submitted appraisals.
func EvaluatorRoles() []string {
	return []string{RoleVerifier, RoleHOD, RoleDean, RoleAssociateDean, RoleDirector}
}

// IsEvaluator reports whether the role may write verified marks.
func IsEvaluator(role string) bool {
	for _, r := range EvaluatorRoles() {
		if r == role {
			return true
		}
	}
	return false
}
