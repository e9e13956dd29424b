package controllers

import (
	"net/http"

	"faculty-appraisal-api/config"
	"faculty-appraisal-api/services"
	"faculty-appraisal-api/utils"

	"github.com/gin-gonic/gin"
)

type RebuildCommitteeRequest struct {
	CommitteeIDs []int `json:"committee_ids" validate:"required,min=1,dive,gt=0"`
	RemovedIDs   []int `json:"removed_ids" validate:"omitempty,dive,gt=0"`
}

type ReassignCommitteeRequest struct {
	Assignments map[int][]int `json:"assignments" validate:"required,min=1"`
}

// GetCommittee returns the active verifier-to-faculty mapping of a
// department.
func GetCommittee(c *gin.Context) {
	department := utils.SanitizeInput(c.Param("department"))

	mapping, err := services.NewCommitteeService(config.DB).Get(department)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"committee": mapping,
	})
}

// RebuildCommittee replaces a department's committee with a fresh contiguous
// partition of the roster across the given verifiers.
func RebuildCommittee(c *gin.Context) {
	department := utils.SanitizeInput(c.Param("department"))

	var req RebuildCommitteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mapping, err := services.NewCommitteeService(config.DB).Rebuild(department, req.CommitteeIDs, req.RemovedIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	identity := identityFrom(c)
	writeAudit(c, identity.UserID, "committee_rebuild", nil,
		gin.H{"department": department, "committee_ids": req.CommitteeIDs, "removed_ids": req.RemovedIDs},
		"Committee rebuilt")

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"committee": mapping,
	})
}

// ReassignCommittee updates only the named verifiers' faculty lists.
func ReassignCommittee(c *gin.Context) {
	department := utils.SanitizeInput(c.Param("department"))

	var req ReassignCommitteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := services.NewCommitteeService(config.DB).Reassign(department, req.Assignments); err != nil {
		respondError(c, err)
		return
	}

	identity := identityFrom(c)
	writeAudit(c, identity.UserID, "committee_reassign", nil,
		gin.H{"department": department, "assignments": req.Assignments},
		"Committee assignments updated")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Committee assignments updated",
	})
}
