package handlers

import (
	"github.com/colegio-digital/grading-service/internal/middleware"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	assignmentHandler *AssignmentHandler
	unitHandler       *UnitHandler
	activityHandler   *ActivityHandler
	gradeHandler      *GradeHandler
	reopenHandler     *ReopenHandler
	auditHandler      *AuditHandler

	auth   middleware.Authenticator
	logger utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	auth middleware.Authenticator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), serviceManager.Unit(), logger),
		unitHandler:       NewUnitHandler(serviceManager.Unit(), serviceManager.Closure(), serviceManager.Export(), logger),
		activityHandler:   NewActivityHandler(serviceManager.Activity(), logger),
		gradeHandler:      NewGradeHandler(serviceManager.Grade(), logger),
		reopenHandler:     NewReopenHandler(serviceManager.Reopen(), logger),
		auditHandler:      NewAuditHandler(serviceManager.Audit(), logger),
		auth:              auth,
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(
		middleware.RequestID(),
		middleware.CORSMiddleware(),
		utils.LoggerMiddleware(hm.logger),
		utils.ContextLogger(hm.logger),
	)

	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(hm.auth))
	{
		assignments := v1.Group("/assignments")
		{
			assignments.POST("", hm.assignmentHandler.CreateAssignment)
			assignments.GET("", hm.assignmentHandler.ListAssignments)
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.DELETE("/:id", hm.assignmentHandler.DeleteAssignment)
			assignments.GET("/:id/units", hm.assignmentHandler.ListUnits)
			assignments.POST("/:id/close-and-open-next", hm.assignmentHandler.CloseAndOpenNext)
		}

		units := v1.Group("/units")
		{
			units.GET("/:id", hm.unitHandler.GetUnit)
			units.POST("/:id/activate", hm.unitHandler.ActivateUnit)
			units.PUT("/:id/weights", hm.unitHandler.UpdateWeights)
			units.GET("/:id/weights/check", hm.unitHandler.CheckWeights)
			units.GET("/:id/closure", hm.unitHandler.ValidateClosure)
			units.POST("/:id/close", hm.unitHandler.CloseUnit)
			units.GET("/:id/export", hm.unitHandler.ExportGrades)

			units.GET("/:id/activities", hm.activityHandler.ListActivities)
			units.POST("/:id/activities", hm.activityHandler.CreateActivity)

			units.POST("/:id/reopen-requests", hm.reopenHandler.RequestReopen)
		}

		activities := v1.Group("/activities")
		{
			activities.GET("/:id", hm.activityHandler.GetActivity)
			activities.PUT("/:id", hm.activityHandler.UpdateActivity)
			activities.DELETE("/:id", hm.activityHandler.DeleteActivity)

			activities.GET("/:id/grades", hm.gradeHandler.ListGrades)
			activities.POST("/:id/grades", hm.gradeHandler.RecordGrades)
			activities.GET("/:id/grading-gate", hm.gradeHandler.GradingGate)
		}

		reopen := v1.Group("/reopen-requests")
		{
			reopen.GET("/mine", hm.reopenHandler.ListMine)

			staff := reopen.Group("", middleware.RequireRole(models.RoleAdmin, models.RoleOperator))
			staff.GET("/pending", hm.reopenHandler.ListPending)
			staff.POST("/:id/resolve", hm.reopenHandler.ResolveReopen)
		}

		v1.GET("/audit-logs", hm.auditHandler.ListAuditLogs)
	}
}
