package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"faculty-appraisal-api/config"
	"faculty-appraisal-api/services"

	"github.com/gin-gonic/gin"
)

// UpdateSection applies an owner edit to one of the five scoring sections.
// Evaluator-only leaves in the payload are stripped before the merge, never
// persisted.
func UpdateSection(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appraisal year"})
		return
	}
	sectionID := strings.ToUpper(strings.TrimSpace(c.Param("section")))

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	identity := identityFrom(c)
	record, err := services.NewAppraisalService(config.DB).UpdateSection(identity, year, sectionID, payload)
	if err != nil {
		respondError(c, err)
		return
	}

	writeAudit(c, identity.UserID, "update_section", record,
		gin.H{"section": sectionID}, "Section updated")

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"appraisal": record,
	})
}

// UpdateDeclaration records the owner's declaration agreement.
func UpdateDeclaration(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appraisal year"})
		return
	}

	var req struct {
		IsAgreed *bool `json:"is_agreed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_agreed is required"})
		return
	}

	identity := identityFrom(c)
	record, err := services.NewAppraisalService(config.DB).UpdateDeclaration(identity, year, *req.IsAgreed)
	if err != nil {
		respondError(c, err)
		return
	}

	writeAudit(c, identity.UserID, "update_declaration", record,
		gin.H{"is_agreed": *req.IsAgreed}, "Declaration updated")

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"appraisal": record,
	})
}

// UpdateEvaluatorMark writes a single evaluator's Part D mark, routed to the
// leaf owned by the caller's role.
func UpdateEvaluatorMark(c *gin.Context) {
	ownerID, year, ok := recordKey(c)
	if !ok {
		return
	}

	var req struct {
		Marks *float64 `json:"marks" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "marks is required and must be a number"})
		return
	}

	identity := identityFrom(c)
	record, err := services.NewAppraisalService(config.DB).EvaluatorMark(identity, ownerID, year, *req.Marks)
	if err != nil {
		respondError(c, err)
		return
	}

	writeAudit(c, identity.UserID, "evaluator_mark", record,
		gin.H{"marks": *req.Marks, "role": identity.Role}, "Evaluator mark recorded")

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"appraisal": record,
	})
}
