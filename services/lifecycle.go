package services

import (
	"faculty-appraisal-api/models"
)

// Identity is the authenticated caller as supplied by the transport layer.
// The core trusts it completely and never derives it itself.
type Identity struct {
	UserID int
	Role   string
}

// Operation names one record-level action gated by the lifecycle.
type Operation string

const (
	OpSubmit            Operation = "submit"
	OpVerify            Operation = "verify"
	OpApprove           Operation = "approve"
	OpDelete            Operation = "delete"
	OpUpdateSection     Operation = "update_section"
	OpUpdateDeclaration Operation = "update_declaration"
	OpEvaluatorMark     Operation = "evaluator_mark"
)

// lifecycleRule declares who may perform an operation and from which status.
// Target is empty for edits that leave the status unchanged. OwnerOnly rules
// additionally require the caller to be the record owner.
type lifecycleRule struct {
	From      string
	Target    string
	Roles     []string
	OwnerOnly bool
}

// lifecycleTable is the single source of truth for transition legality.
// Transitions never skip a state and never move backward; approved is
// terminal.
var lifecycleTable = map[Operation]lifecycleRule{
	OpSubmit: {
		From:      models.StatusDraft,
		Target:    models.StatusSubmitted,
		Roles:     []string{models.RoleFaculty},
		OwnerOnly: true,
	},
	OpVerify: {
		From:   models.StatusSubmitted,
		Target: models.StatusVerified,
		Roles: []string{
			models.RoleVerifier, models.RoleHOD, models.RoleDean,
			models.RoleAssociateDean, models.RoleDirector,
		},
	},
	OpApprove: {
		From:   models.StatusVerified,
		Target: models.StatusApproved,
		Roles:  []string{models.RoleDirector, models.RoleAdmin},
	},
	OpDelete: {
		From:      models.StatusDraft,
		Roles:     []string{models.RoleFaculty},
		OwnerOnly: true,
	},
	OpUpdateSection: {
		From:      models.StatusDraft,
		Roles:     []string{models.RoleFaculty},
		OwnerOnly: true,
	},
	OpUpdateDeclaration: {
		From:      models.StatusDraft,
		Roles:     []string{models.RoleFaculty},
		OwnerOnly: true,
	},
	OpEvaluatorMark: {
		From: models.StatusSubmitted,
		Roles: []string{
			models.RoleDean, models.RoleHOD,
			models.RoleDirector, models.RoleAssociateDean,
		},
	},
}

// CanTransition reports whether role may perform op on a record in the given
// status. Pure table lookup, exhaustive over (operation, status, role).
func CanTransition(op Operation, status, role string) bool {
	rule, ok := lifecycleTable[op]
	if !ok || rule.From != status {
		return false
	}
	for _, r := range rule.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TargetStatus returns the status op advances a record to, or the empty
// string when op does not move the lifecycle.
func TargetStatus(op Operation) string {
	return lifecycleTable[op].Target
}

// RequiredStatus returns the status op must start from.
func RequiredStatus(op Operation) string {
	return lifecycleTable[op].From
}

// AuthorizeOperation checks role, ownership and status precondition for op on
// record. Role failures surface as AuthorizationError, status failures as
// PreconditionFailedError; a submit without declaration agreement gets its
// own declaration-required error.
func AuthorizeOperation(record *models.AppraisalRecord, identity Identity, op Operation) error {
	rule, ok := lifecycleTable[op]
	if !ok {
		return &ValidationError{Field: "operation", Message: "unknown operation " + string(op)}
	}

	allowed := false
	for _, r := range rule.Roles {
		if r == identity.Role {
			allowed = true
			break
		}
	}
	if !allowed {
		return &AuthorizationError{Role: identity.Role, Operation: string(op)}
	}
	if rule.OwnerOnly && record.UserID != identity.UserID {
		return &AuthorizationError{Role: identity.Role, Operation: string(op) + " another user's appraisal"}
	}

	if record.Status != rule.From {
		return &PreconditionFailedError{Required: rule.From, Actual: record.Status}
	}

	if op == OpSubmit && !record.Declaration.IsAgreed {
		return &PreconditionFailedError{
			Required: rule.From,
			Actual:   record.Status,
			Message:  "declaration must be agreed before submission",
		}
	}

	return nil
}
