package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/handler"
	"github.com/invigil/invigil-backend/internal/middleware"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/response"
	"github.com/invigil/invigil-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Exam    *handler.ExamHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/verify", middleware.RequireAuth(authService), handlers.Auth.Verify)
	}

	// ─── 2. Exams Group (JWT, role-gated per route) ────────────────────
	exams := router.Group("/api/v1/exams")
	exams.Use(middleware.RequireAuth(authService))
	{
		exams.GET("", middleware.RequireRole(model.RoleAdmin), handlers.Exam.ListExams)
		exams.GET("/available", middleware.RequireRole(model.RoleStudent), handlers.Exam.ListAvailableExams)
		exams.GET("/completed", middleware.RequireRole(model.RoleStudent), handlers.Exam.ListCompletedExams)
		exams.POST("", middleware.RequireRole(model.RoleAdmin), handlers.Exam.CreateExam)

		exams.GET("/:exam_id", handlers.Exam.GetExam)
		exams.GET("/:exam_id/questions", handlers.Exam.GetQuestions)
		exams.POST("/:exam_id/answer", middleware.RequireRole(model.RoleStudent), handlers.Exam.SaveAnswer)
		exams.POST("/:exam_id/submit", middleware.RequireRole(model.RoleStudent), handlers.Exam.SubmitExam)
		exams.PUT("/:exam_id", middleware.RequireRole(model.RoleAdmin), handlers.Exam.UpdateExam)
		exams.DELETE("/:exam_id", middleware.RequireRole(model.RoleAdmin), handlers.Exam.DeleteExam)
	}

	// ─── 3. Monitoring Group (JWT, role-gated per route) ───────────────
	monitoring := router.Group("/api/v1/monitoring")
	monitoring.Use(middleware.RequireAuth(authService))
	{
		monitoring.GET("/:exam_id", middleware.RequireRole(model.RoleAdmin), handlers.Monitor.GetMonitoring)
		monitoring.GET("/:exam_id/logs", middleware.RequireRole(model.RoleAdmin), handlers.Monitor.GetMonitoringLogs)

		monitoring.POST("/start", middleware.RequireRole(model.RoleStudent), handlers.Monitor.StartMonitoring)
		monitoring.POST("/update", middleware.RequireRole(model.RoleStudent), handlers.Monitor.UpdateMonitoring)
		monitoring.POST("/warning", middleware.RequireRole(model.RoleStudent), handlers.Monitor.RecordWarning)
		monitoring.POST("/end", middleware.RequireRole(model.RoleStudent), handlers.Monitor.EndMonitoring)
	}

	return router
}
