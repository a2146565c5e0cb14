package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type HandlerManager struct {
	attemptHandler    *AttemptHandler
	gradeHandler      *GradeHandler
	progressHandler   *ProgressHandler
	evaluationHandler *EvaluationHandler
	authMiddleware    *CasdoorAuthMiddleware
	health            func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		gradeHandler:      NewGradeHandler(serviceManager.Grade(), logger),
		progressHandler:   NewProgressHandler(serviceManager.Progress(), logger),
		evaluationHandler: NewEvaluationHandler(serviceManager.Attempt(), serviceManager.Export(), logger),
		authMiddleware:    authMiddleware,
		health:            serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staff := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleProctor, models.RoleAdmin)
	instructors := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		evaluations := v1.Group("/evaluations/:evaluation_id")
		{
			evaluations.POST("/attempts", hm.attemptHandler.StartAttempt)
			evaluations.GET("/attempts/me", hm.attemptHandler.ListMyAttempts)

			evaluations.GET("/attempts", staff, hm.attemptHandler.ListAttempts)
			evaluations.GET("/stats", staff, hm.evaluationHandler.GetStats)
			evaluations.GET("/grades/export", instructors, hm.evaluationHandler.ExportGrades)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.PUT("/:id/answers", hm.attemptHandler.UpdateAnswers)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.DELETE("/:id", hm.attemptHandler.DeleteAttempt)

			// students read their own published grade through the same route
			attempts.GET("/:id/grade", hm.gradeHandler.GetAttemptGrade)
			attempts.POST("/:id/grade", instructors, hm.gradeHandler.GradeAttempt)
		}

		grades := v1.Group("/grades")
		{
			grades.GET("/:id", hm.gradeHandler.GetGrade)
			grades.PATCH("/:id", instructors, hm.gradeHandler.UpdateGrade)
			grades.DELETE("/:id", instructors, hm.gradeHandler.DeleteGrade)
			grades.POST("/:id/publish", instructors, hm.gradeHandler.PublishGrade)
		}

		courses := v1.Group("/courses/:course_id")
		{
			courses.GET("/progress/me", hm.progressHandler.GetMyProgress)
			courses.GET("/students/:student_id/progress", staff, hm.progressHandler.GetStudentProgress)

			override := courses.Group("/modules/:module_id/students/:student_id/override", instructors)
			override.PUT("", hm.progressHandler.SetModuleOverride)
			override.DELETE("", hm.progressHandler.ClearModuleOverride)
		}
	}

	router.GET("/health", hm.healthCheck)
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if hm.health != nil {
		if err := hm.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "evaluation-service",
				"error":   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "evaluation-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
