package services

import (
	"errors"
	"fmt"
	"time"

	"faculty-appraisal-api/models"

	"gorm.io/gorm"
)

// PartitionRoster slices the roster into contiguous, near-equal shares across
// the verifiers. Verifiers are walked in the order given; each receives
// ceil(rosterSize/verifierCount) faculty, with the final chunk holding the
// remainder. First-fit contiguous, so the same inputs always produce the same
// partition.
func PartitionRoster(verifierIDs []int, rosterIDs []int) map[int][]int {
	shares := make(map[int][]int, len(verifierIDs))
	if len(verifierIDs) == 0 {
		return shares
	}

	perVerifier := 0
	if len(rosterIDs) > 0 {
		perVerifier = (len(rosterIDs) + len(verifierIDs) - 1) / len(verifierIDs)
	}

	offset := 0
	for _, verifierID := range verifierIDs {
		end := offset + perVerifier
		if end > len(rosterIDs) {
			end = len(rosterIDs)
		}
		share := make([]int, end-offset)
		copy(share, rosterIDs[offset:end])
		shares[verifierID] = share
		offset = end
	}
	return shares
}

// CommitteeService manages verifier committee assignments per department.
type CommitteeService struct {
	db *gorm.DB
}

func NewCommitteeService(db *gorm.DB) *CommitteeService {
	return &CommitteeService{db: db}
}

// loadVerifiers resolves verifier ids to users and enforces the
// cross-department invariant against the target department. Any unresolvable
// id or same-department verifier rejects the whole operation.
func (s *CommitteeService) loadVerifiers(department string, verifierIDs []int) (map[int]models.User, error) {
	var users []models.User
	if err := s.db.Where("user_id IN ? AND delete_at IS NULL", verifierIDs).Find(&users).Error; err != nil {
		return nil, storeErr("verifier lookup", err)
	}

	byID := make(map[int]models.User, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}

	for _, id := range verifierIDs {
		user, ok := byID[id]
		if !ok {
			return nil, &IntegrityError{Message: fmt.Sprintf("committee member %d does not resolve to a known user", id)}
		}
		if user.Department == department {
			return nil, &IntegrityError{Message: fmt.Sprintf(
				"verifier %d belongs to department %s and cannot verify it", id, department)}
		}
	}
	return byID, nil
}

// Rebuild replaces the whole committee of a department: rows of removed and
// stale verifiers are purged, then every verifier in the new list gets a
// freshly partitioned share of the roster. Runs inside one transaction so a
// partial failure rolls back to the prior committee.
func (s *CommitteeService) Rebuild(department string, verifierIDs []int, removedVerifierIDs []int) (map[string][]string, error) {
	if department == "" {
		return nil, &ValidationError{Field: "department", Message: "department is required"}
	}
	if len(verifierIDs) == 0 {
		return nil, &ValidationError{Field: "committee_ids", Message: "at least one verifier is required"}
	}

	verifiers, err := s.loadVerifiers(department, verifierIDs)
	if err != nil {
		return nil, err
	}

	roster, err := GetDepartmentRoster(s.db, department)
	if err != nil {
		return nil, err
	}
	rosterIDs := make([]int, len(roster))
	for i, member := range roster {
		rosterIDs[i] = member.UserID
	}

	shares := PartitionRoster(verifierIDs, rosterIDs)
	now := time.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(removedVerifierIDs) > 0 {
			if err := tx.Where("department = ? AND verifier_user_id IN ?", department, removedVerifierIDs).
				Delete(&models.CommitteeAssignment{}).Error; err != nil {
				return err
			}
		}

		// Stale rows: verifiers no longer in the committee list.
		if err := tx.Where("department = ? AND verifier_user_id NOT IN ?", department, verifierIDs).
			Delete(&models.CommitteeAssignment{}).Error; err != nil {
			return err
		}

		for _, verifierID := range verifierIDs {
			var existing models.CommitteeAssignment
			result := tx.Where("department = ? AND verifier_user_id = ?", department, verifierID).
				First(&existing)
			if result.Error == nil {
				existing.FacultyUserIDs = shares[verifierID]
				existing.UpdateAt = now
				if err := tx.Model(&existing).
					Select("faculty_user_ids", "update_at").
					Updates(&existing).Error; err != nil {
					return err
				}
				continue
			}
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}
			assignment := models.CommitteeAssignment{
				VerifierUserID: verifierID,
				Department:     department,
				FacultyUserIDs: shares[verifierID],
				CreateAt:       now,
				UpdateAt:       now,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("committee rebuild", err)
	}

	return s.labelMapping(verifiers, roster, verifierIDs, shares), nil
}

// Reassign updates only the named verifiers' rows with explicit faculty-id
// lists, leaving the rest of the committee untouched.
func (s *CommitteeService) Reassign(department string, mapping map[int][]int) error {
	if department == "" {
		return &ValidationError{Field: "department", Message: "department is required"}
	}
	if len(mapping) == 0 {
		return &ValidationError{Field: "assignments", Message: "at least one verifier assignment is required"}
	}

	verifierIDs := make([]int, 0, len(mapping))
	for id := range mapping {
		verifierIDs = append(verifierIDs, id)
	}
	if _, err := s.loadVerifiers(department, verifierIDs); err != nil {
		return err
	}

	roster, err := GetDepartmentRoster(s.db, department)
	if err != nil {
		return err
	}
	inRoster := make(map[int]bool, len(roster))
	for _, member := range roster {
		inRoster[member.UserID] = true
	}

	// Every faculty member keeps exactly one verifier, so the posted lists
	// must be disjoint with each other and with the rows of verifiers the
	// mapping does not name.
	claimedBy := make(map[int]int)
	for verifierID, facultyIDs := range mapping {
		for _, facultyID := range facultyIDs {
			if !inRoster[facultyID] {
				return &IntegrityError{Message: fmt.Sprintf(
					"faculty %d assigned to verifier %d is not in department %s", facultyID, verifierID, department)}
			}
			if prev, dup := claimedBy[facultyID]; dup {
				return &IntegrityError{Message: fmt.Sprintf(
					"faculty %d is assigned to both verifier %d and verifier %d", facultyID, prev, verifierID)}
			}
			claimedBy[facultyID] = verifierID
		}
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var others []models.CommitteeAssignment
		if err := tx.Where("department = ? AND verifier_user_id NOT IN ?", department, verifierIDs).
			Find(&others).Error; err != nil {
			return err
		}
		for _, other := range others {
			for _, facultyID := range other.FacultyUserIDs {
				if _, claimed := claimedBy[facultyID]; claimed {
					return &IntegrityError{Message: fmt.Sprintf(
						"faculty %d is already assigned to verifier %d", facultyID, other.VerifierUserID)}
				}
			}
		}

		for verifierID, facultyIDs := range mapping {
			var existing models.CommitteeAssignment
			result := tx.Where("department = ? AND verifier_user_id = ?", department, verifierID).
				First(&existing)
			if result.Error == nil {
				existing.FacultyUserIDs = facultyIDs
				existing.UpdateAt = now
				if err := tx.Model(&existing).
					Select("faculty_user_ids", "update_at").
					Updates(&existing).Error; err != nil {
					return err
				}
				continue
			}
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}
			assignment := models.CommitteeAssignment{
				VerifierUserID: verifierID,
				Department:     department,
				FacultyUserIDs: facultyIDs,
				CreateAt:       now,
				UpdateAt:       now,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapUnlessTaxonomy("committee reassign", err)
	}
	return nil
}

// Get returns the active committee of a department as verifier label to
// faculty label lists.
func (s *CommitteeService) Get(department string) (map[string][]string, error) {
	if department == "" {
		return nil, &ValidationError{Field: "department", Message: "department is required"}
	}

	var assignments []models.CommitteeAssignment
	if err := s.db.Preload("Verifier").
		Where("department = ?", department).
		Order("verifier_user_id ASC").
		Find(&assignments).Error; err != nil {
		return nil, storeErr("committee lookup", err)
	}

	roster, err := GetDepartmentRoster(s.db, department)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(roster))
	for i := range roster {
		names[roster[i].UserID] = roster[i].FullName()
	}

	out := make(map[string][]string, len(assignments))
	for _, a := range assignments {
		label := fmt.Sprintf("verifier-%d", a.VerifierUserID)
		if a.Verifier != nil {
			label = a.Verifier.FullName()
		}
		members := make([]string, 0, len(a.FacultyUserIDs))
		for _, id := range a.FacultyUserIDs {
			if name, ok := names[id]; ok {
				members = append(members, name)
			} else {
				members = append(members, fmt.Sprintf("user-%d", id))
			}
		}
		out[label] = members
	}
	return out, nil
}

// AssignmentFor returns the committee row covering the given faculty member
// for a verifier, used by the verify authorization check.
func (s *CommitteeService) AssignmentFor(verifierUserID int, department string) (*models.CommitteeAssignment, error) {
	var assignment models.CommitteeAssignment
	err := s.db.Where("department = ? AND verifier_user_id = ?", department, verifierUserID).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "committee assignment", Key: fmt.Sprintf("%s/%d", department, verifierUserID)}
	}
	if err != nil {
		return nil, storeErr("assignment lookup", err)
	}
	return &assignment, nil
}

func (s *CommitteeService) labelMapping(verifiers map[int]models.User, roster []models.User, verifierIDs []int, shares map[int][]int) map[string][]string {
	names := make(map[int]string, len(roster))
	for i := range roster {
		names[roster[i].UserID] = roster[i].FullName()
	}
	out := make(map[string][]string, len(verifierIDs))
	for _, verifierID := range verifierIDs {
		verifier := verifiers[verifierID]
		members := make([]string, 0, len(shares[verifierID]))
		for _, id := range shares[verifierID] {
			members = append(members, names[id])
		}
		out[verifier.FullName()] = members
	}
	return out
}
