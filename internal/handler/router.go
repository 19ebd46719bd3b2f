package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-events-api/internal/middleware"
	"github.com/noah-isme/sma-events-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth        *AuthHandler
	Events      *EventHandler
	Assignments *AssignmentHandler
	Files       *FileHandler
	Users       *UserHandler
	Export      *ExportHandler
}

// RegisterRoutes mounts the API on group. authMW must populate middleware.ContextUserKey.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, authMW gin.HandlerFunc) {
	admin := middleware.RBAC(models.RoleAdmin)
	staff := middleware.RBAC(models.RoleAdmin, models.RoleTeacher)
	anyone := middleware.RBAC(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)

	group.POST("/auth/login", h.Auth.Login)

	secured := group.Group("")
	secured.Use(authMW)
	secured.GET("/auth/me", anyone, h.Auth.Me)
	secured.GET("/me/events", anyone, h.Events.Mine)

	events := secured.Group("/events")
	events.GET("", staff, h.Events.List)
	events.GET("/:id", anyone, h.Events.Get)
	events.POST("", staff, h.Events.Create)
	events.PUT("/:id", staff, h.Events.Update)
	events.DELETE("/:id", admin, h.Events.Delete)
	events.GET("/:id/students/eligible", staff, h.Events.EligibleStudents)
	events.POST("/:id/assignments", staff, h.Assignments.Assign)
	events.DELETE("/:id/assignments/:userId", staff, h.Assignments.Unassign)
	events.POST("/:id/files", middleware.RBAC(models.RoleStudent, models.RoleTeacher), h.Files.Upload)
	events.GET("/:id/files", anyone, h.Files.Files)
	events.GET("/:id/feedback", anyone, h.Files.Feedback)
	events.GET("/:id/roster", staff, h.Export.Roster)

	secured.GET("/teachers/available", staff, h.Events.AvailableTeachers)

	files := secured.Group("/files")
	files.GET("/:id/download", anyone, h.Files.Download)
	files.POST("/:id/review", staff, h.Files.Review)

	users := secured.Group("/users")
	users.POST("", admin, h.Users.Create)
	users.GET("", staff, h.Users.List)
}
