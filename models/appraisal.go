package models

import (
	"time"
)

// Appraisal lifecycle statuses. Transitions only move forward, one step at a
// time: draft -> submitted -> verified -> approved.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusVerified  = "verified"
	StatusApproved  = "approved"
)

// Section identifiers for the five scoring parts.
const (
	SectionA = "A"
	SectionB = "B"
	SectionC = "C"
	SectionD = "D"
	SectionE = "E"
)

// ScoredMetric is the atomic scored item inside a section. Count, amount and
// proof are faculty raw input; claimed is computed by the scoring rubric on
// the client side; verified is written only by evaluators after submission.
type ScoredMetric struct {
	Count    *float64 `json:"count,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
	Claimed  float64  `json:"claimed"`
	Verified float64  `json:"verified"`
	Proof    string   `json:"proof,omitempty"`
}

// Section holds the scored metrics of one part, either directly or nested one
// level under a named group, plus the per-section rollup totals.
type Section struct {
	Metrics       map[string]ScoredMetric            `json:"metrics,omitempty"`
	Groups        map[string]map[string]ScoredMetric `json:"groups,omitempty"`
	TotalClaimed  float64                            `json:"total_claimed"`
	TotalVerified float64                            `json:"total_verified"`
}

// PartD extends a plain section with the evaluator mark leaves. These leaves
// are reachable only through the evaluator-marks endpoint, never through the
// owner's section update.
type PartD struct {
	Section
	DeanMarks      float64 `json:"dean_marks"`
	HODMarks       float64 `json:"hod_marks"`
	DirectorMarks  float64 `json:"director_marks"`
	AdminDeanMarks float64 `json:"admin_dean_marks"`
	IsMarkDean     bool    `json:"is_mark_dean"`
	IsMarkHOD      bool    `json:"is_mark_hod"`
}

// Declaration records the faculty member's agreement before submission.
type Declaration struct {
	IsAgreed      bool       `gorm:"column:is_agreed" json:"is_agreed"`
	SignatureDate *time.Time `gorm:"column:signature_date" json:"signature_date,omitempty"`
}

// Summary carries grand totals across all five sections.
type Summary struct {
	GrandTotalClaimed  float64  `json:"grand_total_claimed"`
	GrandTotalVerified float64  `json:"grand_total_verified"`
	WeightingFactor    *float64 `json:"weighting_factor,omitempty"`
}

// AppraisalRecord is one faculty member's appraisal for one appraisal year.
// The (user_id, appraisal_year) pair is unique; role and designation are a
// snapshot taken at creation and never updated afterwards.
type AppraisalRecord struct {
	AppraisalID     int    `gorm:"primaryKey;column:appraisal_id" json:"appraisal_id"`
	ReferenceNumber string `gorm:"column:reference_number;unique" json:"reference_number"`
	UserID          int    `gorm:"column:user_id;uniqueIndex:idx_user_year" json:"user_id"`
	AppraisalYear   int    `gorm:"column:appraisal_year;uniqueIndex:idx_user_year" json:"appraisal_year"`
	Role            string `gorm:"column:role" json:"role"`
	Designation     string `gorm:"column:designation" json:"designation"`
	Status          string `gorm:"column:status" json:"status"`

	PartA *Section `gorm:"column:part_a;type:json;serializer:json" json:"part_a,omitempty"`
	PartB *Section `gorm:"column:part_b;type:json;serializer:json" json:"part_b,omitempty"`
	PartC *Section `gorm:"column:part_c;type:json;serializer:json" json:"part_c,omitempty"`
	PartD *PartD   `gorm:"column:part_d;type:json;serializer:json" json:"part_d,omitempty"`
	PartE *Section `gorm:"column:part_e;type:json;serializer:json" json:"part_e,omitempty"`

	Declaration Declaration `gorm:"embedded;embeddedPrefix:declaration_" json:"declaration"`
	Summary     *Summary    `gorm:"column:summary;type:json;serializer:json" json:"summary,omitempty"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	VerifiedAt  *time.Time `gorm:"column:verified_at" json:"verified_at,omitempty"`
	ApprovedAt  *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	CreateAt    time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt    time.Time  `gorm:"column:update_at" json:"update_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName overrides
func (AppraisalRecord) TableName() string {
	return "appraisal_records"
}

// SectionByID returns the generic section view for a section identifier.
// Part D exposes its embedded section; evaluator leaves are not reachable
// through this accessor.
func (r *AppraisalRecord) SectionByID(id string) *Section {
	switch id {
	case SectionA:
		return r.PartA
	case SectionB:
		return r.PartB
	case SectionC:
		return r.PartC
	case SectionD:
		if r.PartD == nil {
			return nil
		}
		return &r.PartD.Section
	case SectionE:
		return r.PartE
	}
	return nil
}

// EnsureSection returns the section for id, allocating it when still unset.
func (r *AppraisalRecord) EnsureSection(id string) *Section {
	switch id {
	case SectionA:
		if r.PartA == nil {
			r.PartA = &Section{}
		}
		return r.PartA
	case SectionB:
		if r.PartB == nil {
			r.PartB = &Section{}
		}
		return r.PartB
	case SectionC:
		if r.PartC == nil {
			r.PartC = &Section{}
		}
		return r.PartC
	case SectionD:
		if r.PartD == nil {
			r.PartD = &PartD{}
		}
		return &r.PartD.Section
	case SectionE:
		if r.PartE == nil {
			r.PartE = &Section{}
		}
		return r.PartE
	}
	return nil
}

// ValidSection reports whether id names one of the five scoring parts.
func ValidSection(id string) bool {
	switch id {
	case SectionA, SectionB, SectionC, SectionD, SectionE:
		return true
	}
	return false
}
