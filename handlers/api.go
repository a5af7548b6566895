package handlers

import (
	"legal_matter_engine/middleware"
	"legal_matter_engine/models"
	"legal_matter_engine/services"

	"github.com/labstack/echo/v4"
)

// API holds the services behind the JSON routes
type API struct {
	Cases         *services.CaseService
	Reports       *services.ReportExporter
	Notifications *services.NotificationService
}

// Register mounts every engine route under g. Callers add RequireActor (and
// any rate limiting) to g first.
func (a *API) Register(g *echo.Group) {
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleLawyer, models.RoleStaff)

	cases := g.Group("/cases")
	{
		cases.POST("", a.CreateCaseHandler, staff)
		cases.GET("", a.SearchCasesHandler)
		cases.POST("/bulk-status", a.BulkUpdateStatusHandler, staff)
		cases.GET("/statistics", a.CaseStatisticsHandler, staff)
		cases.GET("/statistics/export", a.ExportStatisticsHandler, staff)

		cases.GET("/:id", a.GetCaseDetailsHandler)
		cases.PATCH("/:id", a.UpdateCaseHandler, staff)
		cases.PUT("/:id/attorney", a.AssignAttorneyHandler, staff)
		cases.POST("/:id/notes", a.AddNoteHandler)
		cases.GET("/:id/timeline", a.CaseTimelineHandler)
		cases.GET("/:id/metrics", a.CaseMetricsHandler)
		cases.GET("/:id/report", a.CaseReportHandler)
		cases.POST("/:id/report/archive", a.ArchiveCaseReportHandler, staff)
		cases.POST("/:id/documents", a.RecordDocumentHandler)
		cases.POST("/:id/documents/upload", a.UploadDocumentHandler)
	}

	tasks := g.Group("/tasks", staff)
	{
		tasks.POST("", a.CreateTaskHandler)
		tasks.PUT("/:id/status", a.UpdateTaskStatusHandler)
		tasks.PUT("/:id/assignee", a.AssignTaskHandler)
	}

	documents := g.Group("/documents")
	{
		documents.GET("/:id", a.GetDocumentHandler)
		documents.GET("/:id/url", a.DocumentURLHandler)
		documents.DELETE("/:id", a.DeleteDocumentHandler)
	}

	notifications := g.Group("/notifications")
	{
		notifications.GET("", a.GetNotificationsHandler)
		notifications.POST("/:id/read", a.MarkNotificationReadHandler)
		notifications.POST("/read-all", a.MarkAllNotificationsReadHandler)
	}
}
