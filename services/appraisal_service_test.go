package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"faculty-appraisal-api/models"

	"gorm.io/gorm"
)

func newAppraisalFixture(t *testing.T) (*gorm.DB, *AppraisalService) {
	t.Helper()

	db := newTestDB(t)
	seedUser(t, db, 1, "asha", models.RoleFaculty, "CSE")
	seedUser(t, db, 2, "ravi", models.RoleFaculty, "CSE")
	seedUser(t, db, 101, "vikram", models.RoleVerifier, "ECE")
	seedUser(t, db, 102, "meena", models.RoleVerifier, "MECH")
	seedUser(t, db, 201, "hodcse", models.RoleHOD, "CSE")
	seedUser(t, db, 301, "deanuser", models.RoleDean, "CSE")
	seedUser(t, db, 401, "directoruser", models.RoleDirector, "")
	seedUser(t, db, 501, "adeanuser", models.RoleAssociateDean, "")
	return db, NewAppraisalService(db)
}

func owner(id int) Identity { return Identity{UserID: id, Role: models.RoleFaculty} }

// draftWithDeclaration creates a draft for the owner and agrees the
// declaration so it is ready to submit.
func draftWithDeclaration(t *testing.T, svc *AppraisalService, userID, year int) *models.AppraisalRecord {
	t.Helper()

	if _, err := svc.Create(owner(userID), year); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	record, err := svc.UpdateDeclaration(owner(userID), year, true)
	if err != nil {
		t.Fatalf("UpdateDeclaration failed: %v", err)
	}
	return record
}

func submittedRecord(t *testing.T, svc *AppraisalService, userID, year int) *models.AppraisalRecord {
	t.Helper()

	draftWithDeclaration(t, svc, userID, year)
	record, err := svc.Submit(owner(userID), year)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return record
}

func TestCreateDraft(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	record, err := svc.Create(owner(1), 2025)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if record.Status != models.StatusDraft {
		t.Errorf("new appraisal status = %q, want draft", record.Status)
	}
	if record.ReferenceNumber == "" {
		t.Error("new appraisal has no reference number")
	}
	if record.Role != models.RoleFaculty {
		t.Errorf("role snapshot = %q, want faculty", record.Role)
	}
}

func TestCreateDuplicateYearConflicts(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	if _, err := svc.Create(owner(1), 2025); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := svc.Create(owner(1), 2025)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("duplicate create should conflict, got %v", err)
	}

	// A different user or a different year is fine.
	if _, err := svc.Create(owner(2), 2025); err != nil {
		t.Errorf("other user same year failed: %v", err)
	}
	if _, err := svc.Create(owner(1), 2026); err != nil {
		t.Errorf("same user other year failed: %v", err)
	}
}

func TestCreateRejectsNonFaculty(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	_, err := svc.Create(Identity{UserID: 201, Role: models.RoleHOD}, 2025)
	var auth *AuthorizationError
	if !errors.As(err, &auth) {
		t.Fatalf("non-faculty create should be rejected, got %v", err)
	}
}

func TestSubmitRequiresDeclaration(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	if _, err := svc.Create(owner(1), 2025); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := svc.Submit(owner(1), 2025)
	var precondition *PreconditionFailedError
	if !errors.As(err, &precondition) {
		t.Fatalf("submit without declaration should fail precondition, got %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	db, svc := newAppraisalFixture(t)

	record := submittedRecord(t, svc, 1, 2025)
	if record.Status != models.StatusSubmitted {
		t.Fatalf("after submit status = %q", record.Status)
	}
	if record.SubmittedAt == nil {
		t.Error("submit did not stamp submitted_at")
	}
	if record.Declaration.SignatureDate == nil {
		t.Error("submit did not stamp the declaration signature date")
	}

	record, err := svc.Verify(Identity{UserID: 201, Role: models.RoleHOD}, 1, 2025, map[string]interface{}{
		"summary": map[string]interface{}{"grand_total_verified": 42.5},
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if record.Status != models.StatusVerified {
		t.Fatalf("after verify status = %q", record.Status)
	}
	if record.VerifiedAt == nil {
		t.Error("verify did not stamp verified_at")
	}
	if record.Summary.GrandTotalVerified != 42.5 {
		t.Errorf("grand total verified = %v, want 42.5", record.Summary.GrandTotalVerified)
	}

	record, err = svc.Approve(Identity{UserID: 401, Role: models.RoleDirector}, 1, 2025, nil)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if record.Status != models.StatusApproved {
		t.Fatalf("after approve status = %q", record.Status)
	}
	if record.ApprovedAt == nil {
		t.Error("approve did not stamp approved_at")
	}

	var history []models.AppraisalStatusHistory
	if err := db.Where("appraisal_id = ?", record.AppraisalID).Order("history_id ASC").Find(&history).Error; err != nil {
		t.Fatalf("history lookup failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history rows, got %d", len(history))
	}
	wantTo := []string{models.StatusSubmitted, models.StatusVerified, models.StatusApproved}
	for i, h := range history {
		if h.NewStatus != wantTo[i] {
			t.Errorf("history[%d].NewStatus = %q, want %q", i, h.NewStatus, wantTo[i])
		}
	}
}

func TestSecondApproveLosesWithActualStatus(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	submittedRecord(t, svc, 1, 2025)
	hod := Identity{UserID: 201, Role: models.RoleHOD}
	director := Identity{UserID: 401, Role: models.RoleDirector}

	if _, err := svc.Verify(hod, 1, 2025, nil); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if _, err := svc.Approve(director, 1, 2025, nil); err != nil {
		t.Fatalf("first Approve failed: %v", err)
	}

	_, err := svc.Approve(director, 1, 2025, nil)
	var precondition *PreconditionFailedError
	if !errors.As(err, &precondition) {
		t.Fatalf("second approve should fail precondition, got %v", err)
	}
	if precondition.Required != models.StatusVerified {
		t.Errorf("Required = %q, want verified", precondition.Required)
	}
	if precondition.Actual != models.StatusApproved {
		t.Errorf("Actual = %q, want approved", precondition.Actual)
	}
}

func TestApproveStampsFinalTotal(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	submittedRecord(t, svc, 1, 2025)
	if _, err := svc.Verify(Identity{UserID: 201, Role: models.RoleHOD}, 1, 2025, nil); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	total := 88.0
	record, err := svc.Approve(Identity{UserID: 401, Role: models.RoleDirector}, 1, 2025, &total)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if record.Summary.GrandTotalVerified != 88.0 {
		t.Errorf("final total = %v, want 88", record.Summary.GrandTotalVerified)
	}
}

func TestDeleteDraftOnly(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	draftWithDeclaration(t, svc, 1, 2025)
	if err := svc.Delete(owner(1), 2025); err != nil {
		t.Fatalf("Delete of a draft failed: %v", err)
	}
	_, err := svc.Get(1, 2025)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("deleted draft still readable, got %v", err)
	}

	// The same year can be created again after the delete.
	if _, err := svc.Create(owner(1), 2025); err != nil {
		t.Fatalf("re-create after delete failed: %v", err)
	}

	submittedRecord(t, svc, 2, 2025)
	err = svc.Delete(owner(2), 2025)
	var precondition *PreconditionFailedError
	if !errors.As(err, &precondition) {
		t.Fatalf("delete of a submitted record should fail precondition, got %v", err)
	}
}

func TestUpdateSectionStripsEvaluatorLeaves(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	draftWithDeclaration(t, svc, 1, 2025)
	record, err := svc.UpdateSection(owner(1), 2025, models.SectionD, map[string]interface{}{
		"metrics": map[string]interface{}{
			"student_feedback": map[string]interface{}{
				"count":    float64(4),
				"claimed":  float64(12),
				"verified": float64(99),
				"proof":    "feedback-report.pdf",
			},
		},
		"total_claimed":  float64(12),
		"total_verified": float64(99),
		"dean_marks":     float64(50),
	})
	if err != nil {
		t.Fatalf("UpdateSection failed: %v", err)
	}

	metric := record.PartD.Metrics["student_feedback"]
	if metric.Claimed != 12 {
		t.Errorf("claimed = %v, want 12", metric.Claimed)
	}
	if metric.Proof != "feedback-report.pdf" {
		t.Errorf("proof = %q", metric.Proof)
	}
	if metric.Verified != 0 {
		t.Errorf("owner wrote verified leaf: %v", metric.Verified)
	}
	if record.PartD.TotalVerified != 0 {
		t.Errorf("owner wrote total_verified: %v", record.PartD.TotalVerified)
	}
	if record.PartD.DeanMarks != 0 {
		t.Errorf("owner wrote dean_marks: %v", record.PartD.DeanMarks)
	}
}

func TestUpdateSectionUnknownSection(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	draftWithDeclaration(t, svc, 1, 2025)
	_, err := svc.UpdateSection(owner(1), 2025, "F", nil)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("unknown section should fail validation, got %v", err)
	}
}

func TestUpdateSectionAfterSubmitFails(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	submittedRecord(t, svc, 1, 2025)
	_, err := svc.UpdateSection(owner(1), 2025, models.SectionA, map[string]interface{}{
		"total_claimed": float64(5),
	})
	var precondition *PreconditionFailedError
	if !errors.As(err, &precondition) {
		t.Fatalf("section update after submit should fail precondition, got %v", err)
	}
	if precondition.Actual != models.StatusSubmitted {
		t.Errorf("Actual = %q, want submitted", precondition.Actual)
	}
}

func TestVerifyPreservesFacultyLeaves(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	draftWithDeclaration(t, svc, 1, 2025)
	if _, err := svc.UpdateSection(owner(1), 2025, models.SectionA, map[string]interface{}{
		"metrics": map[string]interface{}{
			"journal_papers": map[string]interface{}{
				"count":   float64(3),
				"claimed": float64(15),
				"proof":   "doi-list.pdf",
			},
		},
		"total_claimed": float64(15),
	}); err != nil {
		t.Fatalf("UpdateSection failed: %v", err)
	}
	before, err := svc.Submit(owner(1), 2025)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	beforeA, _ := json.Marshal(struct {
		Count   *float64
		Claimed float64
		Proof   string
		Total   float64
	}{
		before.PartA.Metrics["journal_papers"].Count,
		before.PartA.Metrics["journal_papers"].Claimed,
		before.PartA.Metrics["journal_papers"].Proof,
		before.PartA.TotalClaimed,
	})

	after, err := svc.Verify(Identity{UserID: 201, Role: models.RoleHOD}, 1, 2025, map[string]interface{}{
		"part_a": map[string]interface{}{
			"metrics": map[string]interface{}{
				"journal_papers": map[string]interface{}{"verified": float64(12)},
			},
			"total_verified": float64(12),
		},
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	afterA, _ := json.Marshal(struct {
		Count   *float64
		Claimed float64
		Proof   string
		Total   float64
	}{
		after.PartA.Metrics["journal_papers"].Count,
		after.PartA.Metrics["journal_papers"].Claimed,
		after.PartA.Metrics["journal_papers"].Proof,
		after.PartA.TotalClaimed,
	})
	if string(beforeA) != string(afterA) {
		t.Errorf("verify changed faculty leaves:\nbefore %s\nafter  %s", beforeA, afterA)
	}
	if after.PartA.Metrics["journal_papers"].Verified != 12 {
		t.Errorf("verified = %v, want 12", after.PartA.Metrics["journal_papers"].Verified)
	}
	if after.PartA.TotalVerified != 12 {
		t.Errorf("total_verified = %v, want 12", after.PartA.TotalVerified)
	}
}

func TestEvaluatorMarkRouting(t *testing.T) {
	tests := []struct {
		role  string
		check func(t *testing.T, d *models.PartD)
	}{
		{models.RoleDean, func(t *testing.T, d *models.PartD) {
			if d.DeanMarks != 7 || !d.IsMarkDean {
				t.Errorf("dean mark not routed: marks=%v flagged=%v", d.DeanMarks, d.IsMarkDean)
			}
		}},
		{models.RoleHOD, func(t *testing.T, d *models.PartD) {
			if d.HODMarks != 7 || !d.IsMarkHOD {
				t.Errorf("hod mark not routed: marks=%v flagged=%v", d.HODMarks, d.IsMarkHOD)
			}
		}},
		{models.RoleDirector, func(t *testing.T, d *models.PartD) {
			if d.DirectorMarks != 7 {
				t.Errorf("director mark not routed: %v", d.DirectorMarks)
			}
		}},
		{models.RoleAssociateDean, func(t *testing.T, d *models.PartD) {
			if d.AdminDeanMarks != 7 {
				t.Errorf("associate dean mark not routed: %v", d.AdminDeanMarks)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			_, svc := newAppraisalFixture(t)
			submittedRecord(t, svc, 1, 2025)

			record, err := svc.EvaluatorMark(Identity{UserID: 900, Role: tt.role}, 1, 2025, 7)
			if err != nil {
				t.Fatalf("EvaluatorMark failed: %v", err)
			}
			tt.check(t, record.PartD)
		})
	}
}

func TestEvaluatorMarksAccumulateAcrossRoles(t *testing.T) {
	_, svc := newAppraisalFixture(t)
	submittedRecord(t, svc, 1, 2025)

	if _, err := svc.EvaluatorMark(Identity{UserID: 201, Role: models.RoleHOD}, 1, 2025, 9); err != nil {
		t.Fatalf("hod EvaluatorMark failed: %v", err)
	}
	record, err := svc.EvaluatorMark(Identity{UserID: 301, Role: models.RoleDean}, 1, 2025, 7)
	if err != nil {
		t.Fatalf("dean EvaluatorMark failed: %v", err)
	}

	if record.PartD.HODMarks != 9 || !record.PartD.IsMarkHOD {
		t.Errorf("earlier hod mark was lost: marks=%v flagged=%v", record.PartD.HODMarks, record.PartD.IsMarkHOD)
	}
	if record.PartD.DeanMarks != 7 || !record.PartD.IsMarkDean {
		t.Errorf("dean mark missing: marks=%v flagged=%v", record.PartD.DeanMarks, record.PartD.IsMarkDean)
	}
}

func TestStaleSnapshotWritesMatchNothing(t *testing.T) {
	db, svc := newAppraisalFixture(t)
	record := submittedRecord(t, svc, 1, 2025)
	stale := *record

	// Another evaluator commits between this snapshot and its write.
	if _, err := svc.EvaluatorMark(Identity{UserID: 201, Role: models.RoleHOD}, 1, 2025, 9); err != nil {
		t.Fatalf("hod EvaluatorMark failed: %v", err)
	}

	// Replay a part_d write built from the stale snapshot, the way the
	// service issues it. The update_at predicate must reject it.
	seen := stale.UpdateAt
	stale.PartD = &models.PartD{DeanMarks: 7, IsMarkDean: true}
	stale.UpdateAt = time.Now()
	result := db.Model(&models.AppraisalRecord{}).
		Where("appraisal_id = ? AND status = ? AND update_at = ?",
			stale.AppraisalID, models.StatusSubmitted, seen).
		Select("part_d", "update_at").
		Updates(&stale)
	if result.Error != nil {
		t.Fatalf("replay write errored: %v", result.Error)
	}
	if result.RowsAffected != 0 {
		t.Fatalf("stale part_d write matched %d rows", result.RowsAffected)
	}

	// Same for a verify-shaped write from the stale snapshot.
	now := time.Now()
	stale.Status = models.StatusVerified
	stale.VerifiedAt = &now
	result = db.Model(&models.AppraisalRecord{}).
		Where("appraisal_id = ? AND status = ? AND update_at = ?",
			stale.AppraisalID, models.StatusSubmitted, seen).
		Select("status", "verified_at", "update_at",
			"part_a", "part_b", "part_c", "part_d", "part_e", "summary").
		Updates(&stale)
	if result.Error != nil {
		t.Fatalf("replay verify errored: %v", result.Error)
	}
	if result.RowsAffected != 0 {
		t.Fatalf("stale verify write matched %d rows", result.RowsAffected)
	}

	// The committed mark is intact and the service path layers on top of it.
	record, err := svc.EvaluatorMark(Identity{UserID: 301, Role: models.RoleDean}, 1, 2025, 7)
	if err != nil {
		t.Fatalf("dean EvaluatorMark failed: %v", err)
	}
	if record.PartD.HODMarks != 9 {
		t.Errorf("hod mark lost to stale replay: %v", record.PartD.HODMarks)
	}
	if record.PartD.DeanMarks != 7 {
		t.Errorf("dean mark missing: %v", record.PartD.DeanMarks)
	}
}

func TestVerifyKeepsEvaluatorMarks(t *testing.T) {
	_, svc := newAppraisalFixture(t)
	submittedRecord(t, svc, 1, 2025)

	if _, err := svc.EvaluatorMark(Identity{UserID: 201, Role: models.RoleHOD}, 1, 2025, 9); err != nil {
		t.Fatalf("EvaluatorMark failed: %v", err)
	}

	record, err := svc.Verify(Identity{UserID: 301, Role: models.RoleDean}, 1, 2025, map[string]interface{}{
		"summary": map[string]interface{}{"grand_total_verified": 40.0},
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if record.PartD.HODMarks != 9 || !record.PartD.IsMarkHOD {
		t.Errorf("verify dropped the hod mark: marks=%v flagged=%v", record.PartD.HODMarks, record.PartD.IsMarkHOD)
	}
	if record.Summary.GrandTotalVerified != 40 {
		t.Errorf("grand total = %v, want 40", record.Summary.GrandTotalVerified)
	}
}

func TestEvaluatorMarkRejectsBadInput(t *testing.T) {
	_, svc := newAppraisalFixture(t)
	submittedRecord(t, svc, 1, 2025)

	_, err := svc.EvaluatorMark(Identity{UserID: 301, Role: models.RoleDean}, 1, 2025, -1)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("negative marks should fail validation, got %v", err)
	}

	_, err = svc.EvaluatorMark(owner(1), 1, 2025, 5)
	var auth *AuthorizationError
	if !errors.As(err, &auth) {
		t.Fatalf("faculty evaluator mark should be rejected, got %v", err)
	}
}

func TestVerifierCommitteeScope(t *testing.T) {
	db, svc := newAppraisalFixture(t)
	committee := NewCommitteeService(db)

	submittedRecord(t, svc, 1, 2025)
	submittedRecord(t, svc, 2, 2025)

	// verifier 101 covers faculty 1 only; verifier 102 covers faculty 2.
	if err := committee.Reassign("CSE", map[int][]int{101: {1}, 102: {2}}); err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}

	assigned := Identity{UserID: 101, Role: models.RoleVerifier}
	if _, err := svc.Verify(assigned, 1, 2025, nil); err != nil {
		t.Fatalf("assigned verifier rejected: %v", err)
	}

	_, err := svc.Verify(assigned, 2, 2025, nil)
	var auth *AuthorizationError
	if !errors.As(err, &auth) {
		t.Fatalf("verifier outside scope should be rejected, got %v", err)
	}

	// A verifier with no assignment at all is also rejected.
	unassigned := Identity{UserID: 102, Role: models.RoleVerifier}
	if _, err := svc.Verify(unassigned, 1, 2025, nil); !errors.As(err, &auth) {
		t.Fatalf("verifier covering another faculty should be rejected, got %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	_, svc := newAppraisalFixture(t)

	draftWithDeclaration(t, svc, 1, 2025)
	submittedRecord(t, svc, 2, 2025)

	own, err := svc.List(owner(1))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(own) != 1 || own[0].UserID != 1 {
		t.Errorf("faculty list should hold only own records, got %d", len(own))
	}

	visible, err := svc.List(Identity{UserID: 201, Role: models.RoleHOD})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(visible) != 1 || visible[0].UserID != 2 {
		t.Errorf("evaluator list should exclude drafts, got %d records", len(visible))
	}
}
