package controllers

import (
	"encoding/json"
	"strings"

	"faculty-appraisal-api/config"
	"faculty-appraisal-api/models"
	"faculty-appraisal-api/services"

	"github.com/gin-gonic/gin"
)

// identityFrom builds the core identity from the authenticated gin context.
func identityFrom(c *gin.Context) services.Identity {
	userID, _ := c.Get("userID")
	role, _ := c.Get("role")

	id := services.Identity{}
	if v, ok := userID.(int); ok {
		id.UserID = v
	}
	if v, ok := role.(string); ok {
		id.Role = v
	}
	return id
}

// respondError maps every taxonomy member to its own HTTP status.
func respondError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	if status >= 500 {
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func ptr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// writeAudit records a mutating operation. Audit failures never fail the
// request itself.
func writeAudit(c *gin.Context, userID int, action string, record *models.AppraisalRecord, values interface{}, description string) {
	serialized, _ := json.Marshal(values)
	audit := models.AuditLog{
		UserID:      userID,
		Action:      action,
		EntityType:  "appraisal",
		NewValues:   serialized,
		Description: ptr(description),
		IPAddress:   c.ClientIP(),
	}
	if record != nil {
		entityID := record.AppraisalID
		audit.EntityID = &entityID
		if record.ReferenceNumber != "" {
			number := record.ReferenceNumber
			audit.EntityNumber = &number
		}
	}
	if userAgent := c.GetHeader("User-Agent"); strings.TrimSpace(userAgent) != "" {
		ua := userAgent
		audit.UserAgent = &ua
	}
	_ = config.DB.Create(&audit).Error
}
