package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/handler"
	"github.com/stemsi/gradebook-backend/internal/middleware"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Grade      *handler.GradeHandler
	Upload     *handler.UploadHandler
	History    *handler.HistoryHandler
	Course     *handler.CourseHandler
	Statistics *handler.StatisticsHandler
	Student    *handler.StudentHandler
	Admin      *handler.AdminHandler
	System     *handler.SystemHandler
	WS         *handler.WSHandler
}

// Dependencies are the cross-cutting collaborators of the middleware chain.
type Dependencies struct {
	Tokens   middleware.TokenValidator
	Activity middleware.ActivityEnqueuer
	Log      zerolog.Logger
}

// Auth route rate limit per client IP.
const (
	authRateLimit  = 30
	authRateWindow = time.Minute
)

var (
	staff     = []model.Role{model.RoleAdmin, model.RoleTeacher}
	anyRole   = []model.Role{model.RoleAdmin, model.RoleTeacher, model.RoleStudent}
	adminOnly = []model.Role{model.RoleAdmin}
)

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by the router (rate limiter sweeps).
func SetupRouter(ctx context.Context, deps Dependencies, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics())
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		MinLength:        middleware.DefaultBrotliConfig.MinLength,
		Quality:          middleware.DefaultBrotliConfig.Quality,
		ExcludedPrefixes: []string{"/metrics", "/ws/"},
	}))

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(deps.Tokens)
	activity := middleware.ActivityLogger(deps.Activity, deps.Log)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(ctx, authRateLimit, authRateWindow)
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/signup", authLimiter.Middleware(), handlers.Auth.Signup)
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/logout", requireAuth, activity, handlers.Auth.Logout)
	}

	// ─── 2. Authenticated API ──────────────────────────────────────────
	// The activity logger runs after auth so each record has a principal.
	api := router.Group("/api/v1")
	api.Use(requireAuth, activity)

	// Users
	users := api.Group("/users")
	users.Use(middleware.NoStore())
	{
		users.GET("/me", handlers.User.GetMe)
		users.PUT("/me", handlers.User.UpdateMe)
		users.GET("/:id", middleware.RequireRoles(adminOnly...), handlers.User.GetUser)
		users.PUT("/:id", middleware.RequireRoles(adminOnly...), handlers.User.UpdateUser)
	}

	// Grades
	grades := api.Group("/grades")
	{
		grades.POST("", middleware.RequireRoles(staff...), handlers.Grade.CreateGrade)
		grades.POST("/upload", middleware.RequireRoles(staff...), handlers.Upload.UploadGrades)
		grades.GET("/upload/template", middleware.RequireRoles(staff...), handlers.Upload.DownloadTemplate)
		grades.GET("/student/:student_id",
			middleware.RequireRoles(anyRole...),
			middleware.RequireSelfOrStaff("student_id"),
			handlers.Grade.ListStudentGrades,
		)
		grades.GET("/:id", middleware.RequireRoles(staff...), handlers.Grade.GetGrade)
		grades.PUT("/:id", middleware.RequireRoles(staff...), handlers.Grade.UpdateGrade)
		grades.DELETE("/:id", middleware.RequireRoles(staff...), handlers.Grade.DeleteGrade)
		grades.GET("/:id/history", middleware.RequireRoles(staff...), handlers.History.GradeHistory)
	}

	// Courses and enrollments
	courses := api.Group("/courses")
	{
		courses.POST("", middleware.RequireRoles(staff...), handlers.Course.CreateCourse)
		courses.GET("", middleware.RequireRoles(anyRole...), handlers.Course.ListCourses)
		courses.GET("/:id", middleware.RequireRoles(anyRole...), handlers.Course.GetCourse)
		courses.GET("/:id/averages", middleware.RequireRoles(staff...), handlers.Statistics.CourseAverages)
		courses.GET("/:id/students", middleware.RequireRoles(staff...), handlers.Course.ListCourseStudents)
		courses.POST("/:id/students", middleware.RequireRoles(staff...), handlers.Course.EnrollMany)
		courses.POST("/:id/students/:student_id", middleware.RequireRoles(staff...), handlers.Course.Enroll)
		courses.DELETE("/:id/students/:student_id", middleware.RequireRoles(staff...), handlers.Course.Unenroll)
	}

	// Students
	students := api.Group("/students")
	{
		students.GET("", middleware.RequireRoles(staff...), handlers.Student.ListStudents)
		students.POST("", middleware.RequireRoles(adminOnly...), handlers.Student.CreateStudent)
		students.GET("/:id", middleware.RequireRoles(staff...), handlers.Student.GetStudent)
		students.PUT("/:id", middleware.RequireRoles(adminOnly...), handlers.Student.UpdateStudent)
		students.DELETE("/:id", middleware.RequireRoles(adminOnly...), handlers.Student.DeleteStudent)

		students.GET("/:id/courses",
			middleware.RequireRoles(anyRole...),
			middleware.RequireSelfOrStaff("id"),
			handlers.Course.ListStudentCourses,
		)
		students.GET("/:id/averages",
			middleware.RequireRoles(anyRole...),
			middleware.RequireSelfOrStaff("id"),
			handlers.Statistics.StudentAverages,
		)
		students.GET("/:id/grades/history", middleware.RequireRoles(staff...), handlers.History.StudentHistory)
	}

	// ─── 3. Admin Group ────────────────────────────────────────────────
	admin := api.Group("/admin")
	admin.Use(middleware.RequireRoles(adminOnly...))
	{
		admin.GET("/grades/history", handlers.History.ListHistory)
		admin.GET("/activity", handlers.Admin.ListActivity)
		admin.GET("/backups", handlers.Admin.ListBackups)
		admin.POST("/backups", handlers.Admin.CreateBackup)
		admin.GET("/system", handlers.System.Status)
	}

	// ─── 4. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(deps.Tokens), middleware.RequireRoles(staff...))
	{
		ws.GET("/grades/history", handlers.WS.HistoryStream)
	}

	return router
}
