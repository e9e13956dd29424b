package models

import "time"

// CommitteeAssignment maps one cross-department verifier to the slice of a
// department's faculty roster they review. Within a department the assigned
// sets are pairwise disjoint and together cover the full roster.
type CommitteeAssignment struct {
	AssignmentID   int    `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	VerifierUserID int    `gorm:"column:verifier_user_id;uniqueIndex:idx_verifier_department" json:"verifier_user_id"`
	Department     string `gorm:"column:department;uniqueIndex:idx_verifier_department" json:"department"`
	FacultyUserIDs []int  `gorm:"column:faculty_user_ids;type:json;serializer:json" json:"faculty_user_ids"`

	CreateAt time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt time.Time `gorm:"column:update_at" json:"update_at"`

	// Relations
	Verifier *User `gorm:"foreignKey:VerifierUserID" json:"verifier,omitempty"`
}

// TableName overrides
func (CommitteeAssignment) TableName() string {
	return "committee_assignments"
}

// Covers reports whether facultyUserID is in this verifier's share.
func (a *CommitteeAssignment) Covers(facultyUserID int) bool {
	for _, id := range a.FacultyUserIDs {
		if id == facultyUserID {
			return true
		}
	}
	return false
}
