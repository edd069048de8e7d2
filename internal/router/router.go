package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/edutrilha/classe-api/internal/config"
	"github.com/edutrilha/classe-api/internal/handler"
	"github.com/edutrilha/classe-api/internal/middleware"
	"github.com/edutrilha/classe-api/internal/observability"
)

// Dependencies carries every handler the router wires up.
type Dependencies struct {
	Config     config.Config
	Activity   *handler.ActivityHandler
	Submission *handler.SubmissionHandler
	Grading    *handler.GradingHandler
	Summary    *handler.SummaryHandler
	Audit      *handler.AuditHandler
}

// Register mounts all API routes.
func Register(app *fiber.App, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api")
	v1 := api.Group("/v1")
	v1.Get("/health", handler.HealthCheck(deps.Config))

	protected := v1.Group("", middleware.JWTProtected(deps.Config.JWTSecret))
	teacherOnly := middleware.RequireRole(middleware.RoleTeacher, middleware.RoleAdmin)

	activities := protected.Group("/activities")
	activities.Post("", teacherOnly, deps.Activity.Create)
	activities.Get("", deps.Activity.ListByClass)
	activities.Get("/:id", deps.Activity.GetByID)
	activities.Post("/:id/attachment", teacherOnly, deps.Activity.AttachFile)

	submissions := protected.Group("/submissions")
	submissions.Post("", deps.Submission.Submit)
	submissions.Get("", teacherOnly, deps.Submission.List)
	submissions.Get("/activity/:activityID/student/:studentID", deps.Submission.GetForStudent)

	grading := protected.Group("/grading", teacherOnly)
	grading.Post("/sessions", deps.Grading.StartSession)
	grading.Get("/sessions/:id", deps.Grading.GetSession)
	grading.Post("/sessions/:id/select", deps.Grading.SelectSubmission)
	grading.Put("/sessions/:id/items/:itemID", deps.Grading.SetItemScore)
	grading.Post("/sessions/:id/items/:itemID/ai", deps.Grading.GradeTextItem)
	grading.Post("/sessions/:id/ai", deps.Grading.GradeAllTextItems)
	grading.Put("/sessions/:id/filter", deps.Grading.FilterRoster)
	grading.Post("/sessions/:id/save", deps.Grading.Save)
	grading.Delete("/sessions/:id", deps.Grading.EndSession)

	summaries := protected.Group("/summaries")
	summaries.Get("/class/:classID/student/:studentID", deps.Summary.Get)
	summaries.Post("/class/:classID/student/:studentID/rebuild", teacherOnly, deps.Summary.Rebuild)

	audit := protected.Group("/audit", middleware.RequireRole(middleware.RoleAdmin))
	audit.Get("/logs", deps.Audit.ListRecent)
}
