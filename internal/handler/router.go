package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
)

// Handlers groups every API handler mounted by RegisterRoutes.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Schools       *SchoolHandler
	HomePage      *HomePageHandler
	TransportFees *TransportFeeHandler
	Students      *StudentHandler
	Classes       *ClassHandler
	Teachers      *TeacherHandler
	Attendance    *AttendanceHandler
	AcademicYears *AcademicYearHandler
	Examinations  *ExaminationHandler
	Marksheets    *MarksheetHandler
	Notifications *NotificationHandler
	Sms           *SmsHandler
}

// RegisterRoutes mounts the API under api (normally /api).
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator, audit middleware.AuditWriter, logger *zap.Logger) {
	authn := middleware.JWT(tokens)
	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleSchoolAdmin)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleSchoolAdmin, models.RoleTeacher)
	superadmin := middleware.RequireRoles(models.RoleSuperAdmin)
	scoped := middleware.SchoolScope()
	audited := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(audit, logger, action, resource)
	}

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", authn, h.Auth.Logout)
	auth.GET("/me", authn, h.Auth.Me)
	auth.POST("/change-password", authn, h.Auth.ChangePassword)

	schools := api.Group("/schools", authn, superadmin)
	schools.GET("", h.Schools.List)
	schools.GET("/:id", h.Schools.Get)
	schools.POST("", audited("CREATE", "school"), h.Schools.Create)
	schools.PUT("/:id", audited("UPDATE", "school"), h.Schools.Update)
	schools.DELETE("/:id", audited("DEACTIVATE", "school"), h.Schools.Delete)

	users := api.Group("/users", authn, admins)
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.POST("", h.Users.Create)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	home := api.Group("/home-page-content/:schoolId")
	home.GET("", h.HomePage.Get)
	homeAdmin := home.Group("", authn, admins)
	homeAdmin.POST("", h.HomePage.Replace)
	homeAdmin.DELETE("", h.HomePage.Delete)
	homeAdmin.PUT("/header", h.HomePage.UpdateHeader)
	homeAdmin.PUT("/about", h.HomePage.UpdateAbout)
	homeAdmin.PUT("/section-visibility", h.HomePage.UpdateSectionVisibility)
	homeAdmin.PUT("/seo", h.HomePage.UpdateSEO)
	homeAdmin.POST("/upload", h.HomePage.Upload)
	h.HomePage.registerSections(homeAdmin)

	fees := api.Group("/transport-fees", authn, scoped)
	fees.GET("", h.TransportFees.List)
	fees.GET("/:id", h.TransportFees.Get)
	fees.POST("", admins, audited("CREATE", "transport_fee"), h.TransportFees.Create)
	fees.PUT("/:id", admins, audited("UPDATE", "transport_fee"), h.TransportFees.Update)
	fees.PATCH("/:id/toggle", admins, audited("TOGGLE", "transport_fee"), h.TransportFees.Toggle)
	fees.DELETE("/:id", admins, audited("DELETE", "transport_fee"), h.TransportFees.Delete)

	students := api.Group("/students", authn, scoped)
	students.GET("", staff, h.Students.List)
	students.GET("/export", staff, h.Students.Export)
	students.GET("/:id", staff, h.Students.Get)
	students.GET("/:id/fees", staff, h.Students.Fees)
	students.GET("/:id/pdf", staff, h.Students.PDF)
	students.GET("/:id/promotions", staff, h.AcademicYears.History)
	students.POST("", admins, audited("CREATE", "student"), h.Students.Create)
	students.PUT("/:id", admins, audited("UPDATE", "student"), h.Students.Update)
	students.DELETE("/:id", admins, audited("DEACTIVATE", "student"), h.Students.Delete)

	classes := api.Group("/classes", authn, scoped)
	classes.GET("", staff, h.Classes.List)
	classes.GET("/:id", staff, h.Classes.Get)
	classes.POST("", admins, audited("CREATE", "class"), h.Classes.Create)
	classes.PUT("/:id", admins, audited("UPDATE", "class"), h.Classes.Update)
	classes.DELETE("/:id", admins, audited("DELETE", "class"), h.Classes.Delete)

	teachers := api.Group("/teachers", authn, scoped)
	teachers.GET("", staff, h.Teachers.List)
	teachers.GET("/:id", staff, h.Teachers.Get)
	teachers.POST("", admins, audited("CREATE", "teacher"), h.Teachers.Create)
	teachers.PUT("/:id", admins, audited("UPDATE", "teacher"), h.Teachers.Update)
	teachers.DELETE("/:id", admins, audited("DEACTIVATE", "teacher"), h.Teachers.Delete)

	attendance := api.Group("/attendance", authn, scoped, staff)
	attendance.POST("/bulk", h.Attendance.Bulk)
	attendance.GET("", h.Attendance.Sheet)
	attendance.GET("/report", h.Attendance.Report)
	attendance.GET("/students/:id/summary", h.Attendance.Summary)

	years := api.Group("/academic-years", authn, scoped)
	years.GET("", h.AcademicYears.List)
	years.GET("/current", h.AcademicYears.Current)
	years.GET("/:id", h.AcademicYears.Get)
	years.POST("", admins, h.AcademicYears.Create)
	years.PUT("/:id", admins, h.AcademicYears.Update)
	years.DELETE("/:id", admins, h.AcademicYears.Delete)
	years.POST("/:id/set-current", admins, h.AcademicYears.SetCurrent)
	years.POST("/promote", admins, h.AcademicYears.Promote)

	exams := api.Group("/examinations", authn, scoped)
	exams.GET("", staff, h.Examinations.List)
	exams.GET("/:id", staff, h.Examinations.Get)
	exams.POST("", admins, audited("CREATE", "examination"), h.Examinations.Create)
	exams.PUT("/:id", admins, audited("UPDATE", "examination"), h.Examinations.Update)
	exams.DELETE("/:id", admins, audited("DELETE", "examination"), h.Examinations.Delete)

	marksheets := api.Group("/marksheets", authn, scoped, staff)
	marksheets.GET("", h.Marksheets.List)
	marksheets.GET("/final", h.Marksheets.Final)
	marksheets.GET("/:id", h.Marksheets.Get)
	marksheets.GET("/:id/pdf", h.Marksheets.PDF)
	marksheets.POST("", audited("SAVE", "marksheet"), h.Marksheets.Save)
	marksheets.PUT("/:id", audited("UPDATE", "marksheet"), h.Marksheets.Update)
	marksheets.DELETE("/:id", admins, audited("DELETE", "marksheet"), h.Marksheets.Delete)

	inbox := api.Group("/notifications/me", authn)
	inbox.GET("", h.Notifications.Inbox)
	inbox.POST("/:id/read", h.Notifications.MarkRead)

	notifications := api.Group("/notifications", authn, scoped, admins)
	notifications.POST("", h.Notifications.Create)
	notifications.GET("", h.Notifications.List)
	notifications.GET("/:id", h.Notifications.Get)
	notifications.DELETE("/:id", audited("DELETE", "notification"), h.Notifications.Delete)

	templates := api.Group("/sms-templates", authn, scoped, admins)
	templates.GET("", h.Sms.ListTemplates)
	templates.GET("/:id", h.Sms.GetTemplate)
	templates.POST("", h.Sms.CreateTemplate)
	templates.PUT("/:id", h.Sms.UpdateTemplate)
	templates.DELETE("/:id", audited("DELETE", "sms_template"), h.Sms.DeleteTemplate)

	sms := api.Group("/sms", authn, scoped, admins)
	sms.POST("/send", h.Sms.Send)
	sms.GET("/logs", h.Sms.Logs)
}
