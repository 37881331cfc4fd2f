package app

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-core/internal/handler"
	"github.com/noah-isme/sma-scheduling-core/internal/middleware"
	"github.com/noah-isme/sma-scheduling-core/pkg/config"
	"github.com/noah-isme/sma-scheduling-core/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-scheduling-core/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-scheduling-core/pkg/middleware/requestid"
)

// Router builds the HTTP shell around the services.
func (a *App) Router() *gin.Engine {
	if a.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(middleware.Actor())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(middleware.Metrics(a.Metrics, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(corsmiddleware.Options{
		AllowedOrigins: a.Config.CORS.AllowedOrigins,
		AllowedHeaders: a.Config.CORS.AllowedHeaders,
		ExposedHeaders: a.Config.CORS.ExposedHeaders,
		MaxAge:         a.Config.CORS.MaxAge,
	}))

	checks := map[string]handler.Pinger{"database": a.DB}
	if a.cacheEnabled {
		checks["redis"] = handler.PingFunc(a.cacheRepo.Ping)
	}
	metricsHandler := handler.NewMetricsHandler(a.Metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	assignments := handler.NewAssignmentHandler(a.Assignments)
	workloads := handler.NewWorkloadHandler(a.Workloads)
	consistency := handler.NewConsistencyHandler(a.Consistency)
	audit := handler.NewAuditHandler(a.Audit)
	catalog := handler.NewCatalogHandler(a.Catalog)

	api := r.Group(a.Config.APIPrefix)

	api.POST("/assignments", assignments.Create)
	api.POST("/assignments/validate", assignments.Validate)
	api.GET("/assignments", assignments.List)
	api.GET("/assignments/:id", assignments.Get)
	api.PATCH("/assignments/:id", assignments.Update)
	api.POST("/assignments/:id/validate", assignments.ValidateUpdate)
	api.DELETE("/assignments/:id", assignments.Delete)

	api.GET("/audit", audit.List)

	api.POST("/instructors", catalog.CreateInstructor)
	api.GET("/instructors", catalog.ListInstructors)
	api.GET("/instructors/:id", catalog.GetInstructor)
	api.PATCH("/instructors/:id/active", catalog.SetInstructorActive)
	api.GET("/instructors/:id/workload", workloads.Get)
	api.GET("/instructors/:id/timetable", assignments.InstructorTimetable)

	api.POST("/classrooms", catalog.CreateClassroom)
	api.PATCH("/classrooms/:id/capacity", catalog.UpdateClassroomCapacity)
	api.GET("/classrooms/:id/timetable", assignments.ClassroomTimetable)

	api.POST("/groups", catalog.CreateStudentGroup)
	api.PATCH("/groups/:id/active", catalog.SetStudentGroupActive)
	api.GET("/groups/:id/timetable", assignments.GroupTimetable)

	api.POST("/quarters", catalog.CreateQuarter)
	api.GET("/quarters", catalog.ListQuarters)
	api.GET("/quarters/:id", catalog.GetQuarter)
	api.GET("/quarters/:id/conflicts", consistency.Conflicts)
	api.POST("/quarters/:id/audit", consistency.Audit)

	api.POST("/campuses", catalog.CreateCampus)
	api.POST("/departments", catalog.CreateDepartment)
	api.POST("/contracts", catalog.CreateContract)
	api.POST("/programs", catalog.CreateProgram)
	api.POST("/time-blocks", catalog.CreateTimeBlock)
	api.POST("/days", catalog.CreateDay)
	api.POST("/day-slots", catalog.CreateDaySlot)
	api.GET("/day-slots", catalog.ListDaySlots)

	return r
}
