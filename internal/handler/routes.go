package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-timetable-api/internal/middleware"
	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Terms        *TermHandler
	Teachers     *TeacherHandler
	Rooms        *RoomHandler
	ClassGroups  *ClassGroupHandler
	Subjects     *SubjectHandler
	TimeSlots    *TimeSlotHandler
	Availability *AvailabilityHandler
	Schedules    *ScheduleHandler
	Timetables   *TimetableHandler
}

// Register mounts all API routes under the given prefix. Export downloads are
// the only authenticated-data route outside the JWT group; their signed token
// is the credential.
func (h *Handlers) Register(r gin.IRouter, prefix string, auth *service.AuthService) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.GET("/timetables/export/download", h.Timetables.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))

	protected.GET("/auth/me", h.Auth.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)

	protected.GET("/terms", h.Terms.List)
	protected.GET("/terms/active", h.Terms.GetActive)
	protected.GET("/terms/:id", h.Terms.Get)
	protected.POST("/terms", admin, h.Terms.Create)
	protected.PUT("/terms/:id", admin, h.Terms.Update)

	protected.GET("/teachers", h.Teachers.List)
	protected.GET("/teachers/:teacherID", h.Teachers.Get)
	protected.POST("/teachers", admin, h.Teachers.Create)
	protected.PUT("/teachers/:teacherID", admin, h.Teachers.Update)
	protected.DELETE("/teachers/:teacherID", admin, h.Teachers.Deactivate)

	availabilityAccess := middleware.RBAC(string(models.RoleAdmin), "SELF")
	protected.GET("/teachers/:teacherID/availability", availabilityAccess, h.Availability.ListByTeacher)
	protected.PUT("/teachers/:teacherID/availability", availabilityAccess, h.Availability.Set)

	protected.GET("/rooms", h.Rooms.List)
	protected.GET("/rooms/:id", h.Rooms.Get)
	protected.POST("/rooms", admin, h.Rooms.Create)
	protected.PUT("/rooms/:id", admin, h.Rooms.Update)
	protected.DELETE("/rooms/:id", admin, h.Rooms.Delete)

	protected.GET("/class-groups", h.ClassGroups.List)
	protected.GET("/class-groups/:id", h.ClassGroups.Get)
	protected.POST("/class-groups", admin, h.ClassGroups.Create)
	protected.PUT("/class-groups/:id", admin, h.ClassGroups.Update)
	protected.DELETE("/class-groups/:id", admin, h.ClassGroups.Delete)

	protected.GET("/subjects", h.Subjects.List)
	protected.GET("/subjects/:id", h.Subjects.Get)
	protected.POST("/subjects", admin, h.Subjects.Create)
	protected.PUT("/subjects/:id", admin, h.Subjects.Update)
	protected.DELETE("/subjects/:id", admin, h.Subjects.Delete)

	protected.GET("/time-slots", h.TimeSlots.List)
	protected.GET("/time-slots/:id", h.TimeSlots.Get)
	protected.POST("/time-slots", admin, h.TimeSlots.Create)
	protected.PUT("/time-slots/:id", admin, h.TimeSlots.Update)
	protected.DELETE("/time-slots/:id", admin, h.TimeSlots.Delete)

	protected.GET("/schedules", h.Schedules.List)
	protected.GET("/schedules/:id", h.Schedules.Get)
	protected.POST("/schedules/check-conflicts", admin, h.Schedules.CheckConflicts)
	protected.POST("/schedules", admin, h.Schedules.Create)
	protected.PUT("/schedules/:id", admin, h.Schedules.Update)
	protected.DELETE("/schedules/:id", admin, h.Schedules.Delete)

	timetableSelf := middleware.RBAC(string(models.RoleAdmin), "SELF")
	protected.GET("/timetables/terms/:termID", admin, h.Timetables.Term)
	protected.GET("/timetables/terms/:termID/me", h.Timetables.Mine)
	protected.GET("/timetables/terms/:termID/teachers/:teacherID", timetableSelf, h.Timetables.Teacher)
	protected.GET("/timetables/terms/:termID/class-groups/:classGroupID", timetableSelf, h.Timetables.ClassGroup)
	protected.POST("/timetables/export", admin, h.Timetables.Export)
}
