package routes

import (
	"faculty-appraisal-api/controllers"
	"faculty-appraisal-api/middleware"
	"faculty-appraisal-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Faculty Appraisal API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Notifications
			protected.GET("/notifications", controllers.GetNotifications)
			protected.PUT("/notifications/:id/read", controllers.MarkNotificationRead)

			// Owner-side appraisal lifecycle
			my := protected.Group("/my/appraisals")
			my.Use(middleware.RequireRole(models.RoleFaculty))
			{
				my.POST("", controllers.CreateAppraisal)
				my.GET("/:year", controllers.GetMyAppraisal)
				my.PUT("/:year/sections/:section", controllers.UpdateSection)
				my.PUT("/:year/declaration", controllers.UpdateDeclaration)
				my.POST("/:year/submit", controllers.SubmitAppraisal)
				my.DELETE("/:year", controllers.DeleteAppraisal)
			}

			// Evaluator-side operations, keyed on (user_id, year)
			appraisals := protected.Group("/appraisals")
			{
				appraisals.GET("", controllers.ListAppraisals)
				appraisals.GET("/:user_id/:year",
					middleware.RequireRole(append(models.EvaluatorRoles(), models.RoleAdmin)...),
					controllers.GetAppraisal)
				appraisals.POST("/:user_id/:year/verify",
					middleware.RequireRole(models.EvaluatorRoles()...),
					controllers.VerifyAppraisal)
				appraisals.POST("/:user_id/:year/approve",
					middleware.RequireRole(models.RoleDirector, models.RoleAdmin),
					controllers.ApproveAppraisal)
				appraisals.PUT("/:user_id/:year/evaluator-marks",
					middleware.RequireRole(models.RoleDean, models.RoleHOD,
						models.RoleDirector, models.RoleAssociateDean),
					controllers.UpdateEvaluatorMark)
			}

			// Committee management
			committees := protected.Group("/committees")
			{
				committees.GET("/:department",
					middleware.RequireRole(append(models.EvaluatorRoles(), models.RoleAdmin)...),
					controllers.GetCommittee)
				committees.POST("/:department",
					middleware.RequireRole(models.RoleAdmin),
					controllers.RebuildCommittee)
				committees.PUT("/:department/assignments",
					middleware.RequireRole(models.RoleAdmin),
					controllers.ReassignCommittee)
			}
		}
	}
}
