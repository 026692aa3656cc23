package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/baronda/siskamling-backend/internal/config"
	"github.com/baronda/siskamling-backend/internal/http/handlers"
	"github.com/baronda/siskamling-backend/internal/http/middleware"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/service"
)

// Handlers: все хэндлеры, которые подключает роутер.
type Handlers struct {
	Health        *handlers.HealthHandler
	OTP           *handlers.OTPHandler
	Users         *handlers.UserHandler
	Staff         *handlers.StaffHandler
	Reports       *handlers.ReportHandler
	Schedules     *handlers.ScheduleHandler
	Finance       *handlers.FinanceHandler
	Community     *handlers.CommunityHandler
	Notifications *handlers.NotificationHandler
	Mail          *handlers.MailHandler
	WS            *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager, sessions middleware.SubjectGuard, limits limiter.Store) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	id := middleware.UUIDValidator("id")

	// Отправка и проверка кодов лимитируются отдельно от входа.
	otpLimit := middleware.RateLimitMiddleware(limits, "otp", cfg.RateLimitLimit, cfg.RateLimitPeriod)
	loginLimit := middleware.RateLimitMiddleware(limits, "login", cfg.RateLimitLimit, cfg.RateLimitPeriod)

	api.POST("/send-otp", otpLimit, h.OTP.SendOTP)
	api.POST("/verify-otp", otpLimit, h.OTP.VerifyOTP)

	api.POST("/users/register", loginLimit, h.Users.Register)
	api.POST("/users/login", loginLimit, h.Users.Login)
	api.POST("/staff/apply", loginLimit, h.Staff.Apply)
	api.POST("/staff/login", loginLimit, h.Staff.Login)

	api.GET("/announcements", h.Community.ListAnnouncements)
	api.GET("/emergency-contacts", h.Community.ListContacts)
	api.GET("/settings/public", h.Community.PublicSettings)

	// WebSocket: токен в query, проверяется внутри хэндлера.
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireActiveSubject(sessions))
	{
		// Уведомления общие для жителей и сотрудников, адресат берётся из токена.
		notifications := protected.Group("/notifications")
		notifications.GET("", h.Notifications.ListNotifications)
		notifications.GET("/unread-count", h.Notifications.CountUnread)
		notifications.PUT("/read-all", h.Notifications.MarkAllAsRead)
		notifications.PUT("/:id/read", id, h.Notifications.MarkAsRead)
		notifications.DELETE("/:id", id, h.Notifications.DeleteNotification)
	}

	resident := protected.Group("")
	resident.Use(middleware.RequireKind(service.KindUser))
	{
		resident.GET("/me", h.Users.Me)
		resident.POST("/reports/mine", h.Reports.Create)
		resident.GET("/reports/mine", h.Reports.ListMine)
		resident.GET("/reports/mine/:id", id, h.Reports.GetMine)
		resident.GET("/reports/mine/:id/photo", id, h.Reports.MinePhoto)
		resident.GET("/dues/mine", h.Finance.MyDues)
	}

	staff := protected.Group("")
	staff.Use(middleware.RequireKind(service.KindStaff))
	{
		staff.GET("/staff/me", h.Staff.Me)
		staff.PUT("/staff/me/access-code", h.Staff.ChangeAccessCode)

		staff.GET("/reports", h.Reports.List)
		staff.GET("/reports/:id", id, h.Reports.Get)
		staff.GET("/reports/:id/photo", id, h.Reports.Photo)
		staff.PUT("/reports/:id/status", id, h.Reports.UpdateStatus)
		staff.POST("/reports/:id/triage", id, h.Reports.Triage)

		staff.GET("/schedules/mine", h.Schedules.ListMine)
		staff.POST("/schedules/:id/check-in", id, h.Schedules.CheckIn)

		staff.GET("/honorariums/mine", h.Finance.MyHonorariums)
	}

	admin := protected.Group("")
	admin.Use(middleware.RequireRole(models.StaffRoleAdmin))
	{
		admin.POST("/send-email", h.Mail.SendEmail)

		adm := admin.Group("/admin")

		adm.GET("/staff", h.Staff.List)
		adm.POST("/staff/:id/approve", id, h.Staff.Approve)
		adm.POST("/staff/:id/reject", id, h.Staff.Reject)
		adm.POST("/staff/:id/suspend", id, h.Staff.Suspend)
		adm.POST("/staff/:id/reactivate", id, h.Staff.Reactivate)
		adm.POST("/staff/:id/reset-access-code", id, h.Staff.ResetAccessCode)

		adm.GET("/users", h.Users.List)
		adm.PUT("/users/:id/active", id, h.Users.SetActive)

		adm.GET("/schedules", h.Schedules.ListRange)
		adm.POST("/schedules", h.Schedules.Create)
		adm.PUT("/schedules/:id", id, h.Schedules.Update)
		adm.POST("/schedules/:id/missed", id, h.Schedules.MarkMissed)
		adm.DELETE("/schedules/:id", id, h.Schedules.Delete)

		adm.GET("/dues", h.Finance.ListDues)
		adm.POST("/dues", h.Finance.RecordDue)
		adm.POST("/dues/period", h.Finance.RecordDuesForPeriod)
		adm.POST("/dues/:id/paid", id, h.Finance.MarkDuePaid)
		adm.GET("/honorariums", h.Finance.ListHonorariums)
		adm.POST("/honorariums", h.Finance.RecordHonorarium)
		adm.POST("/honorariums/:id/paid", id, h.Finance.MarkHonorariumPaid)
		adm.GET("/finance/summary", h.Finance.Summary)

		adm.POST("/announcements", h.Community.CreateAnnouncement)
		adm.PUT("/announcements/:id", id, h.Community.UpdateAnnouncement)
		adm.DELETE("/announcements/:id", id, h.Community.DeleteAnnouncement)

		adm.POST("/emergency-contacts", h.Community.CreateContact)
		adm.PUT("/emergency-contacts/:id", id, h.Community.UpdateContact)
		adm.DELETE("/emergency-contacts/:id", id, h.Community.DeleteContact)

		adm.GET("/settings", h.Community.ListSettings)
		adm.GET("/settings/:key", h.Community.GetSetting)
		adm.PUT("/settings/:key", h.Community.UpsertSetting)

		adm.GET("/logs", h.Community.ListAdminLogs)
	}

	return r
}
