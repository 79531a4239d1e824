package router

import (
	"net/http"
	"time"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/edupulse/edupulse-backend/internal/handler"
	"github.com/edupulse/edupulse-backend/internal/middleware"
	"github.com/edupulse/edupulse-backend/internal/response"
	"github.com/edupulse/edupulse-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Exam      *handler.ExamHandler
	Result    *handler.ResultHandler
	Telemetry *handler.TelemetryHandler
	AttemptWS *handler.AttemptWSHandler
	PlayerWS  *handler.PlayerWSHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(cfg *config.Config, auth *service.AuthService, h Handlers) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(response.RequestIDMiddleware())
	r.Use(buildCORS(cfg))
	r.Use(middleware.Brotli())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	student := api.Group("/student", middleware.RequireStudentJWT(auth))
	{
		student.GET("/exams/:exam_id", h.Exam.GetPaper)
		student.POST("/exams/:exam_id/submit", h.Exam.Submit)
		student.GET("/results", h.Result.List)
		student.GET("/results/:result_id", h.Result.Get)
		student.GET("/results/:result_id/engagement", h.Result.GetEngagement)
	}

	// Collector ingest is key-guarded and rate-limited rather than
	// JWT-guarded: players emit telemetry without a student session.
	ingestLimiter := middleware.NewRateLimiter(120, time.Minute)
	collector := api.Group("/collector", middleware.RequireIngestKey(cfg), ingestLimiter.Middleware())
	{
		collector.POST("/watch-events", h.Telemetry.Ingest)
	}

	wsStudent := r.Group("/ws/v1/student", middleware.RequireStudentWSAuth(auth))
	{
		wsStudent.GET("/exams/:exam_id/attempt", h.AttemptWS.Stream)
		wsStudent.GET("/review/:result_id/player", h.PlayerWS.Stream)
	}

	return r
}

// buildCORS allows the configured origins, or everything when none are set.
func buildCORS(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderIngestKey},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsCfg)
}
