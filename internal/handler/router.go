package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/middleware"
	"github.com/hard4j/bvp-attendance-api/internal/models"
)

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth        *AuthHandler
	Attendance  *AttendanceHandler
	Reports     *ReportHandler
	Departments *DepartmentHandler
	Subjects    *SubjectHandler
	Batches     *BatchHandler
	Staff       *StaffHandler
	Assignments *AssignmentHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API under prefix. Probes and metrics stay at the
// root so orchestrators can reach them without credentials.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, tokens middleware.TokenValidator, logger *zap.Logger) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/admin/login", h.Auth.AdminLogin)
	auth.POST("/staff/login", h.Auth.StaffLogin)
	auth.POST("/hod/login", h.Auth.HODLogin)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.GET("/auth/me", h.Auth.Me)

	everyone := middleware.RequireRoles(models.RoleAdmin, models.RoleHOD, models.RoleStaff)
	managers := middleware.RequireRoles(models.RoleAdmin, models.RoleHOD)
	admins := middleware.RequireRoles(models.RoleAdmin)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logger, action, resource)
	}

	attendance := secured.Group("/attendance", everyone)
	attendance.POST("", audit("mark", "attendance"), h.Attendance.Mark)
	attendance.POST("/validate", h.Attendance.Validate)
	attendance.GET("/session", h.Attendance.Session)
	attendance.POST("/session", admins, audit("correct", "attendance"), h.Attendance.UpdateSession)

	reports := secured.Group("/reports", everyone)
	reports.GET("/attendance", h.Reports.Attendance)
	reports.GET("/defaulters", managers, h.Reports.Defaulters)
	reports.GET("/historical", h.Reports.Historical)

	secured.GET("/staff/assignments", everyone, h.Assignments.Mine)
	secured.GET("/admin/staff-assignments", admins, h.Assignments.Overview)

	assignments := secured.Group("/assignments")
	assignments.GET("/:id/roster", everyone, h.Attendance.Roster)
	assignments.GET("", managers, h.Assignments.List)
	assignments.GET("/:id", managers, h.Assignments.Get)
	assignments.POST("", managers, audit("create", "assignment"), h.Assignments.Create)
	assignments.DELETE("/:id", managers, audit("delete", "assignment"), h.Assignments.Delete)

	departments := secured.Group("/departments")
	departments.GET("", everyone, h.Departments.List)
	departments.POST("", admins, audit("create", "department"), h.Departments.Create)
	departments.PUT("/:code", admins, audit("update", "department"), h.Departments.Update)
	departments.DELETE("/:code", admins, audit("delete", "department"), h.Departments.Delete)

	subjects := secured.Group("/subjects", managers)
	subjects.GET("", h.Subjects.List)
	subjects.GET("/:id", h.Subjects.Get)
	subjects.POST("", audit("create", "subject"), h.Subjects.Create)
	subjects.PUT("/:id", audit("update", "subject"), h.Subjects.Update)
	subjects.DELETE("/:id", audit("delete", "subject"), h.Subjects.Delete)

	batches := secured.Group("/batches")
	batches.GET("/:id/subjects", everyone, h.Subjects.ListByBatch)
	batches.GET("", managers, h.Batches.List)
	batches.GET("/:id", managers, h.Batches.Get)
	batches.POST("", managers, audit("create", "batch"), h.Batches.Create)
	batches.DELETE("/:id", managers, audit("delete", "batch"), h.Batches.Delete)
	batches.POST("/:id/students", managers, audit("add_student", "batch"), h.Batches.AddStudent)
	batches.POST("/:id/students/import", managers, audit("import_students", "batch"), h.Batches.ImportStudents)
	batches.DELETE("/:id/students/:studentId", managers, audit("remove_student", "batch"), h.Batches.RemoveStudent)

	staff := secured.Group("/staff")
	staff.GET("", managers, h.Staff.List)
	staff.GET("/:id", managers, h.Staff.Get)
	staff.POST("", admins, audit("create", "staff"), h.Staff.Create)
	staff.PUT("/:id", admins, audit("update", "staff"), h.Staff.Update)
	staff.DELETE("/:id", admins, audit("delete", "staff"), h.Staff.Delete)

	hods := secured.Group("/hods", admins)
	hods.GET("", h.Staff.ListHODs)
	hods.POST("", audit("appoint", "hod"), h.Staff.AppointHOD)
	hods.DELETE("/:id", audit("remove", "hod"), h.Staff.RemoveHOD)
}
