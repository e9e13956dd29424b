package controllers

import (
	"net/http"
	"strconv"

	"faculty-appraisal-api/config"
	"faculty-appraisal-api/services"

	"github.com/gin-gonic/gin"
)

// CreateAppraisal opens a new draft appraisal for the calling faculty member.
func CreateAppraisal(c *gin.Context) {
	var req struct {
		AppraisalYear int `json:"appraisal_year" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := identityFrom(c)
	record, err := services.NewAppraisalService(config.DB).Create(identity, req.AppraisalYear)
	if err != nil {
		respondError(c, err)
		return
	}

	writeAudit(c, identity.UserID, "create", record,
		gin.H{"appraisal_year": req.AppraisalYear}, "Appraisal created")

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"appraisal": record,
	})
}

// ListAppraisals returns the caller's records, or the review queue for
// evaluator roles.
func ListAppraisals(c *gin.Context) {
	identity := identityFrom(c)
	records, err := services.NewAppraisalService(config.DB).List(identity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"appraisals": records,
		"total":      len(records),
	})
}

// GetMyAppraisal returns the caller's own record for one year.
func GetMyAppraisal(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appraisal year"})
		return
	}

	identity := identityFrom(c)
	record, err := services.NewAppraisalService(config.DB).Get(identity.UserID, year)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"appraisal": record,
	})
}

// GetAppraisal returns another user's record for evaluator and admin roles.
func GetAppraisal(c *gin.Context) {
	ownerID, year, ok := recordKey(c)
	if !ok {
		return
	}

	record, err := services.NewAppraisalService(config.DB).Get(ownerID, year)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"appraisal": record,
	})
}

// SubmitAppraisal advances the caller's draft to submitted.
func SubmitAppraisal(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appraisal year"})
		return
	}

	identity := identityFrom(c)
	svc := services.NewAppraisalService(config.DB)
	record, err := svc.Submit(identity, year)
	if err != nil {
		respondError(c, err)
		return
	}

	writeAudit(c, identity.UserID, "submit", record, gin.H{"status": record.Status}, "Appraisal submitted")
	services.NewNotificationService(config.DB).NotifySubmitted(record)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Appraisal submitted for verification",
		"appraisal": record,
	})
}

// VerifyAppraisal applies a verification payload and moves the record from
// submitted to verified.
func VerifyAppraisal(c *gin.Context) {
	ownerID, year, ok := recordKey(c)
	if !ok {
		return
	}

	var payload map[string]interface{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	identity := identityFrom(c)
	record, err := services.NewAppraisalService(config.DB).Verify(identity, ownerID, year, payload)
	if err != nil {
		respondError(c, err)
		return
	}

	writeAudit(c, identity.UserID, "verify", record, payload, "Appraisal verified")
	services.NewNotificationService(config.DB).NotifyVerified(record)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Appraisal verified",
		"appraisal": record,
	})
}

// ApproveAppraisal gives final approval, optionally stamping a grand total.
func ApproveAppraisal(c *gin.Context) {
	ownerID, year, ok := recordKey(c)
	if !ok {
		return
	}

	var req struct {
		GrandTotalVerified *float64 `json:"grand_total_verified"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	identity := identityFrom(c)
	record, err := services.NewAppraisalService(config.DB).Approve(identity, ownerID, year, req.GrandTotalVerified)
	if err != nil {
		respondError(c, err)
		return
	}

	writeAudit(c, identity.UserID, "approve", record,
		gin.H{"grand_total_verified": req.GrandTotalVerified}, "Appraisal approved")
	services.NewNotificationService(config.DB).NotifyApproved(record)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Appraisal approved",
		"appraisal": record,
	})
}

// DeleteAppraisal removes the caller's draft permanently.
func DeleteAppraisal(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appraisal year"})
		return
	}

	identity := identityFrom(c)
	if err := services.NewAppraisalService(config.DB).Delete(identity, year); err != nil {
		respondError(c, err)
		return
	}

	writeAudit(c, identity.UserID, "delete", nil, gin.H{"appraisal_year": year}, "Draft appraisal deleted")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Appraisal deleted",
	})
}

// recordKey parses the (user_id, year) record key from evaluator routes.
func recordKey(c *gin.Context) (int, int, bool) {
	ownerID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || ownerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, 0, false
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appraisal year"})
		return 0, 0, false
	}
	return ownerID, year, true
}
