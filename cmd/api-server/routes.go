package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/internal/handler"
	"github.com/noah-isme/gradsmart-api/internal/middleware"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/internal/service"
	"github.com/noah-isme/gradsmart-api/pkg/config"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	"github.com/noah-isme/gradsmart-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gradsmart-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gradsmart-api/pkg/middleware/requestid"
)

type routeServices struct {
	auth          *service.AuthService
	users         *service.UserService
	classes       *service.ClassService
	classwork     *service.ClassworkService
	gradeSummary  *service.GradeSummaryService
	gradebook     *service.GradebookService
	submissions   *service.SubmissionService
	notifications *service.NotificationService
	calendar      *service.CalendarService
	academicYears *service.AcademicYearService
	metrics       *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, caps database.Capabilities, svc routeServices) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics, "/metrics", "/health"))

	metricsHandler := handler.NewMetricsHandler(svc.metrics, db, caps)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svc.auth)
	userHandler := handler.NewUserHandler(svc.users)
	classHandler := handler.NewClassHandler(svc.classes)
	classworkHandler := handler.NewClassworkHandler(svc.classwork)
	submissionHandler := handler.NewSubmissionHandler(svc.submissions)
	gradeHandler := handler.NewGradeHandler(svc.gradeSummary, svc.gradebook, svc.classes)
	notificationHandler := handler.NewNotificationHandler(svc.notifications, svc.metrics, handler.StreamOptions{
		PingInterval: cfg.Notifications.PingInterval,
		MaxPings:     cfg.Notifications.MaxPings,
	})
	calendarHandler := handler.NewCalendarHandler(svc.calendar)
	academicYearHandler := handler.NewAcademicYearHandler(svc.academicYears)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/register", authHandler.Register)
	// Signed links carry their own authorization.
	api.GET("/files/submissions/:storedName", submissionHandler.File)
	api.GET("/files/academic-years/:storedName", academicYearHandler.File)

	secured := api.Group("")
	secured.Use(middleware.Identity(svc.auth, middleware.IdentityOptions{AllowLegacy: cfg.Identity.AllowLegacy, Logger: logr}))
	secured.Use(middleware.RequireIdentity())

	classTeacher := middleware.RequireClassTeacher(svc.classes, middleware.ClassParam("id"))
	classworkTeacher := middleware.RequireClassTeacher(svc.classes, func(c *gin.Context) (string, error) {
		item, err := svc.classwork.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			return "", err
		}
		return item.ClassID, nil
	})

	secured.GET("/users/me", userHandler.Me)
	secured.GET("/users/:id", userHandler.Get)

	secured.GET("/classes", classHandler.List)
	secured.POST("/classes", classHandler.Create)
	secured.GET("/classes/:id", classHandler.Get)
	secured.GET("/classes/:id/roster", classHandler.Roster)
	secured.POST("/classes/:id/instructors", classTeacher, classHandler.AddInstructor)
	secured.GET("/joined-classes", classHandler.Joined)
	secured.DELETE("/joined-classes/:classId", classHandler.Leave)
	secured.POST("/join-class", classHandler.Join)
	secured.POST("/joined-classes", classHandler.Join)

	secured.GET("/classes/:id/classwork", classworkHandler.List)
	secured.POST("/classes/:id/classwork", classTeacher, classworkHandler.Create)
	secured.GET("/classwork/:id", classworkHandler.Get)
	secured.PATCH("/classwork/:id", classworkTeacher, classworkHandler.Update)
	secured.DELETE("/classwork/:id", classworkTeacher, classworkHandler.Delete)

	secured.POST("/classwork/:id/submit", submissionHandler.Submit)
	secured.GET("/classwork/:id/submission/me", submissionHandler.Mine)
	secured.GET("/classwork/:id/submissions", classworkTeacher, submissionHandler.List)
	secured.POST("/classwork/:id/submissions/:submissionId/grade", classworkTeacher, submissionHandler.Grade)
	secured.DELETE("/classwork/:id/submissions/:submissionId", classworkTeacher, submissionHandler.Delete)

	secured.GET("/classes/:id/grades/summary", gradeHandler.Summary)
	secured.GET("/classes/:id/grades", classTeacher, gradeHandler.ClassGrades)
	secured.GET("/classes/:id/gradebook", classTeacher, gradeHandler.GetGradebook)
	secured.POST("/classes/:id/gradebook", classTeacher, gradeHandler.SaveGradebook)
	secured.GET("/classes/:id/gradebook/export", classTeacher, gradeHandler.ExportGradebook)

	secured.GET("/notifications", notificationHandler.List)
	secured.GET("/notifications/stream", notificationHandler.Stream)
	secured.POST("/notifications/:id/read", notificationHandler.MarkRead)
	secured.POST("/notifications/fcm-token", notificationHandler.SaveDeviceToken)

	secured.GET("/calendar", calendarHandler.Events)
	secured.GET("/calendar.ics", calendarHandler.ICS)

	secured.GET("/academic-years/active", academicYearHandler.Active)
	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/academic-years", academicYearHandler.List)
	admin.POST("/academic-years", academicYearHandler.Create)
	admin.PUT("/academic-years/:id/activate", academicYearHandler.Activate)
	admin.DELETE("/academic-years/:id", academicYearHandler.Delete)

	return r
}
