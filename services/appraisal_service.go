package services

import (
	"errors"
	"fmt"
	"time"

	"faculty-appraisal-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Section identifiers to their backing columns, for field-scoped updates.
var sectionColumns = map[string]string{
	models.SectionA: "part_a",
	models.SectionB: "part_b",
	models.SectionC: "part_c",
	models.SectionD: "part_d",
	models.SectionE: "part_e",
}

// AppraisalService executes lifecycle operations against the store. Every
// status-dependent write is a single conditional UPDATE keyed on the current
// status, so two concurrent callers racing the same transition resolve to one
// winner and one precondition failure. Evaluator writes additionally match
// the update_at value they read, so a mark committed between read and write
// forces a re-read instead of being silently overwritten.
type AppraisalService struct {
	db *gorm.DB
}

// evaluatorWriteRetries bounds how many times an evaluator write re-reads
// the record before giving up on timestamp contention.
const evaluatorWriteRetries = 3

// errStaleRecord signals that a conditional write matched no row because the
// record changed after it was read.
var errStaleRecord = errors.New("appraisal changed since read")

// nextUpdateStamp returns a write timestamp strictly after the one read, so
// the optimistic update_at predicate never sees two equal values.
func nextUpdateStamp(seen time.Time) time.Time {
	now := time.Now()
	if !now.After(seen) {
		now = seen.Add(time.Millisecond)
	}
	return now
}

// contentionError reports persistent write contention on a record whose
// status never left the required state.
func contentionError(required string) error {
	return &PreconditionFailedError{
		Required: required,
		Actual:   required,
		Message:  "appraisal was modified concurrently, retry the operation",
	}
}

func NewAppraisalService(db *gorm.DB) *AppraisalService {
	return &AppraisalService{db: db}
}

// Create opens a new draft appraisal for the user and year, snapshotting the
// user's role and designation. A second record for the same (user, year) pair
// is rejected with a conflict, never overwritten.
func (s *AppraisalService) Create(identity Identity, year int) (*models.AppraisalRecord, error) {
	if identity.Role != models.RoleFaculty {
		return nil, &AuthorizationError{Role: identity.Role, Operation: "create an appraisal"}
	}
	if year <= 0 {
		return nil, &ValidationError{Field: "appraisal_year", Message: "a positive year is required"}
	}

	var user models.User
	if err := s.db.Where("user_id = ? AND delete_at IS NULL", identity.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "user", Key: fmt.Sprintf("%d", identity.UserID)}
		}
		return nil, storeErr("user lookup", err)
	}

	var count int64
	if err := s.db.Model(&models.AppraisalRecord{}).
		Where("user_id = ? AND appraisal_year = ?", identity.UserID, year).
		Count(&count).Error; err != nil {
		return nil, storeErr("duplicate check", err)
	}
	if count > 0 {
		return nil, &ConflictError{Entity: "appraisal", Key: fmt.Sprintf("%d/%d", identity.UserID, year)}
	}

	now := time.Now()
	record := models.AppraisalRecord{
		ReferenceNumber: uuid.NewString(),
		UserID:          user.UserID,
		AppraisalYear:   year,
		Role:            user.Role,
		Designation:     user.Designation,
		Status:          models.StatusDraft,
		PartA:           &models.Section{},
		PartB:           &models.Section{},
		PartC:           &models.Section{},
		PartD:           &models.PartD{},
		PartE:           &models.Section{},
		Summary:         &models.Summary{},
		CreateAt:        now,
		UpdateAt:        now,
	}
	if err := s.db.Create(&record).Error; err != nil {
		// Backstop for a concurrent create racing past the count check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Entity: "appraisal", Key: fmt.Sprintf("%d/%d", identity.UserID, year)}
		}
		return nil, storeErr("appraisal create", err)
	}
	return &record, nil
}

// Get loads one appraisal by its (user, year) key.
func (s *AppraisalService) Get(userID, year int) (*models.AppraisalRecord, error) {
	var record models.AppraisalRecord
	err := s.db.Preload("User").
		Where("user_id = ? AND appraisal_year = ?", userID, year).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "appraisal", Key: fmt.Sprintf("%d/%d", userID, year)}
	}
	if err != nil {
		return nil, storeErr("appraisal lookup", err)
	}
	return &record, nil
}

// List returns the caller's own records for faculty, and every non-draft
// record for evaluator and admin roles.
func (s *AppraisalService) List(identity Identity) ([]models.AppraisalRecord, error) {
	var records []models.AppraisalRecord
	query := s.db.Preload("User").Order("appraisal_year DESC, user_id ASC")
	if models.IsEvaluator(identity.Role) || identity.Role == models.RoleAdmin {
		query = query.Where("status <> ?", models.StatusDraft)
	} else {
		query = query.Where("user_id = ?", identity.UserID)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, storeErr("appraisal list", err)
	}
	return records, nil
}

// UpdateSection applies an owner edit to one section while the record is in
// draft. The payload is reduced to the faculty-writable leaf set before the
// merge; the write touches only that section's column, so concurrent updates
// to different sections never interfere.
func (s *AppraisalService) UpdateSection(identity Identity, year int, sectionID string, payload map[string]interface{}) (*models.AppraisalRecord, error) {
	if !models.ValidSection(sectionID) {
		return nil, &ValidationError{Field: "section", Message: fmt.Sprintf("unknown section %q", sectionID)}
	}

	record, err := s.Get(identity.UserID, year)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(record, identity, OpUpdateSection); err != nil {
		return nil, err
	}

	section := record.EnsureSection(sectionID)
	ApplySectionPayload(section, FilterSectionPayload(payload))
	record.UpdateAt = time.Now()

	column := sectionColumns[sectionID]
	result := s.db.Model(&models.AppraisalRecord{}).
		Where("appraisal_id = ? AND status = ?", record.AppraisalID, models.StatusDraft).
		Select(column, "update_at").
		Updates(record)
	if result.Error != nil {
		return nil, storeErr("section update", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, s.statusPrecondition(record.AppraisalID, models.StatusDraft)
	}
	return s.Get(identity.UserID, year)
}

// UpdateDeclaration sets the declaration agreement while in draft.
func (s *AppraisalService) UpdateDeclaration(identity Identity, year int, isAgreed bool) (*models.AppraisalRecord, error) {
	record, err := s.Get(identity.UserID, year)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(record, identity, OpUpdateDeclaration); err != nil {
		return nil, err
	}

	result := s.db.Model(&models.AppraisalRecord{}).
		Where("appraisal_id = ? AND status = ?", record.AppraisalID, models.StatusDraft).
		Updates(map[string]interface{}{
			"declaration_is_agreed": isAgreed,
			"update_at":             time.Now(),
		})
	if result.Error != nil {
		return nil, storeErr("declaration update", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, s.statusPrecondition(record.AppraisalID, models.StatusDraft)
	}
	return s.Get(identity.UserID, year)
}

// Submit advances a draft to submitted, stamping the declaration signature
// date. Fails with a declaration-required error when the owner has not
// agreed, and with a precondition failure when the status already moved.
func (s *AppraisalService) Submit(identity Identity, year int) (*models.AppraisalRecord, error) {
	record, err := s.Get(identity.UserID, year)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(record, identity, OpSubmit); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.AppraisalRecord{}).
			Where("appraisal_id = ? AND status = ?", record.AppraisalID, models.StatusDraft).
			Updates(map[string]interface{}{
				"status":                     models.StatusSubmitted,
				"declaration_signature_date": now,
				"submitted_at":               now,
				"update_at":                  now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return s.statusPrecondition(record.AppraisalID, models.StatusDraft)
		}
		return s.appendHistory(tx, record.AppraisalID, record.Status, models.StatusSubmitted, identity.UserID, nil)
	})
	if err != nil {
		return nil, wrapUnlessTaxonomy("submit", err)
	}
	return s.Get(identity.UserID, year)
}

// Verify applies a verification payload and advances submitted to verified in
// the same conditional write. Department-scoped verifiers must hold a
// committee assignment covering the record's owner; senior evaluator roles
// are not committee-scoped.
func (s *AppraisalService) Verify(identity Identity, ownerUserID, year int, payload map[string]interface{}) (*models.AppraisalRecord, error) {
	for attempt := 0; attempt < evaluatorWriteRetries; attempt++ {
		record, err := s.Get(ownerUserID, year)
		if err != nil {
			return nil, err
		}
		if err := AuthorizeOperation(record, identity, OpVerify); err != nil {
			return nil, err
		}

		if identity.Role == models.RoleVerifier {
			if err := s.checkCommitteeScope(identity, record); err != nil {
				return nil, err
			}
		}

		ApplyVerification(record, payload)

		seenUpdateAt := record.UpdateAt
		now := nextUpdateStamp(seenUpdateAt)
		record.Status = models.StatusVerified
		record.VerifiedAt = &now
		record.UpdateAt = now

		err = s.db.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.AppraisalRecord{}).
				Where("appraisal_id = ? AND status = ? AND update_at = ?",
					record.AppraisalID, models.StatusSubmitted, seenUpdateAt).
				Select("status", "verified_at", "update_at",
					"part_a", "part_b", "part_c", "part_d", "part_e", "summary").
				Updates(record)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return errStaleRecord
			}
			return s.appendHistory(tx, record.AppraisalID, models.StatusSubmitted, models.StatusVerified, identity.UserID, nil)
		})
		if errors.Is(err, errStaleRecord) {
			// Either the status moved or an evaluator mark landed first; the
			// re-read on the next attempt settles which, and a fresh merge
			// keeps that mark.
			continue
		}
		if err != nil {
			return nil, wrapUnlessTaxonomy("verify", err)
		}
		return s.Get(ownerUserID, year)
	}
	return nil, contentionError(models.StatusSubmitted)
}

// Approve advances verified to approved, optionally stamping a final grand
// total. The record is fully immutable afterwards.
func (s *AppraisalService) Approve(identity Identity, ownerUserID, year int, finalTotal *float64) (*models.AppraisalRecord, error) {
	record, err := s.Get(ownerUserID, year)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(record, identity, OpApprove); err != nil {
		return nil, err
	}

	now := time.Now()
	record.Status = models.StatusApproved
	record.ApprovedAt = &now
	record.UpdateAt = now
	if finalTotal != nil {
		if record.Summary == nil {
			record.Summary = &models.Summary{}
		}
		record.Summary.GrandTotalVerified = *finalTotal
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.AppraisalRecord{}).
			Where("appraisal_id = ? AND status = ?", record.AppraisalID, models.StatusVerified).
			Select("status", "approved_at", "update_at", "summary").
			Updates(record)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return s.statusPrecondition(record.AppraisalID, models.StatusVerified)
		}
		return s.appendHistory(tx, record.AppraisalID, models.StatusVerified, models.StatusApproved, identity.UserID, nil)
	})
	if err != nil {
		return nil, wrapUnlessTaxonomy("approve", err)
	}
	return s.Get(ownerUserID, year)
}

// Delete permanently removes a draft. Records past draft are never deleted.
func (s *AppraisalService) Delete(identity Identity, year int) error {
	record, err := s.Get(identity.UserID, year)
	if err != nil {
		return err
	}
	if err := AuthorizeOperation(record, identity, OpDelete); err != nil {
		return err
	}

	result := s.db.Where("appraisal_id = ? AND status = ?", record.AppraisalID, models.StatusDraft).
		Delete(&models.AppraisalRecord{})
	if result.Error != nil {
		return storeErr("appraisal delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return s.statusPrecondition(record.AppraisalID, models.StatusDraft)
	}
	return nil
}

// EvaluatorMark routes a single evaluator's Part D mark to the leaf owned by
// the caller's role. Marks must be non-negative; nothing is written on a
// rejected value. The write matches the update_at it read, so a mark from a
// second evaluator committed in between is re-read and layered under this
// one instead of being overwritten.
func (s *AppraisalService) EvaluatorMark(identity Identity, ownerUserID, year int, marks float64) (*models.AppraisalRecord, error) {
	if marks < 0 || marks != marks {
		return nil, &ValidationError{Field: "marks", Message: "marks must be a non-negative number"}
	}

	for attempt := 0; attempt < evaluatorWriteRetries; attempt++ {
		record, err := s.Get(ownerUserID, year)
		if err != nil {
			return nil, err
		}
		if err := AuthorizeOperation(record, identity, OpEvaluatorMark); err != nil {
			return nil, err
		}

		if record.PartD == nil {
			record.PartD = &models.PartD{}
		}
		switch identity.Role {
		case models.RoleDean:
			record.PartD.DeanMarks = marks
			record.PartD.IsMarkDean = true
		case models.RoleHOD:
			record.PartD.HODMarks = marks
			record.PartD.IsMarkHOD = true
		case models.RoleDirector:
			record.PartD.DirectorMarks = marks
		case models.RoleAssociateDean:
			record.PartD.AdminDeanMarks = marks
		}
		seenUpdateAt := record.UpdateAt
		record.UpdateAt = nextUpdateStamp(seenUpdateAt)

		result := s.db.Model(&models.AppraisalRecord{}).
			Where("appraisal_id = ? AND status = ? AND update_at = ?",
				record.AppraisalID, models.StatusSubmitted, seenUpdateAt).
			Select("part_d", "update_at").
			Updates(record)
		if result.Error != nil {
			return nil, storeErr("evaluator mark", result.Error)
		}
		if result.RowsAffected > 0 {
			return s.Get(ownerUserID, year)
		}
		// Lost the row to a concurrent writer; the next attempt re-reads.
	}
	return nil, contentionError(models.StatusSubmitted)
}

// checkCommitteeScope confirms the verifier's committee assignment covers the
// record's owner.
func (s *AppraisalService) checkCommitteeScope(identity Identity, record *models.AppraisalRecord) error {
	department := ""
	if record.User != nil {
		department = record.User.Department
	}
	assignment, err := NewCommitteeService(s.db).AssignmentFor(identity.UserID, department)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return &AuthorizationError{Role: identity.Role, Operation: "verify outside assigned committee"}
		}
		return err
	}
	if !assignment.Covers(record.UserID) {
		return &AuthorizationError{Role: identity.Role, Operation: "verify a faculty member assigned to another verifier"}
	}
	return nil
}

// statusPrecondition re-reads the row after a conditional write matched
// nothing, so the caller learns the actual status it lost to.
func (s *AppraisalService) statusPrecondition(appraisalID int, required string) error {
	var record models.AppraisalRecord
	err := s.db.Select("status").First(&record, appraisalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "appraisal", Key: fmt.Sprintf("%d", appraisalID)}
	}
	if err != nil {
		return storeErr("status recheck", err)
	}
	return &PreconditionFailedError{Required: required, Actual: record.Status}
}

func (s *AppraisalService) appendHistory(tx *gorm.DB, appraisalID int, oldStatus, newStatus string, changedBy int, reason *string) error {
	history := models.AppraisalStatusHistory{
		AppraisalID: appraisalID,
		OldStatus:   &oldStatus,
		NewStatus:   newStatus,
		ChangedBy:   changedBy,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	return tx.Create(&history).Error
}

// wrapUnlessTaxonomy keeps taxonomy errors intact and wraps anything else as
// a storage failure.
func wrapUnlessTaxonomy(op string, err error) error {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		conflict     *ConflictError
		authz        *AuthorizationError
		precondition *PreconditionFailedError
		integrity    *IntegrityError
		storage      *StorageError
	)
	switch {
	case errors.As(err, &validation),
		errors.As(err, &notFound),
		errors.As(err, &conflict),
		errors.As(err, &authz),
		errors.As(err, &precondition),
		errors.As(err, &integrity),
		errors.As(err, &storage):
		return err
	}
	return &StorageError{Op: op, Err: err}
}
