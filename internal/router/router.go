package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/handler"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz    *handler.QuizHandler
	Exam    *handler.ExamHandler
	Markup  *handler.MarkupHandler
	Media   *handler.MediaHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler

	// Health reports whether the backing stores are reachable.
	Health func(ctx context.Context) error
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the rate limiters' background cleanup.
func SetupRouter(ctx context.Context, handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(log), gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	// /metrics negotiates its own compression.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality: middleware.DefaultBrotliConfig.Quality,
		Skipper: middleware.SkipPaths("/metrics"),
	}))

	// Serve uploaded media files statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", func(c *gin.Context) {
		if handlers.Health != nil {
			hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := handlers.Health(hctx); err != nil {
				_ = c.Error(err)
				response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal)
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", metrics.Handler())

	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, time.Minute)
	submitLimiter.StartCleanup(ctx)
	tokenizeLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute*4, time.Minute)
	tokenizeLimiter.StartCleanup(ctx)

	// ─── 1. Quiz Group (Public) ────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.GET("/exams/:id", handlers.Quiz.GetExamPaper)
		api.POST("/exams/:id/submit", submitLimiter.Middleware(), handlers.Quiz.SubmitExam)
		api.GET("/exams/:id/draft", middleware.NoStore(), handlers.Quiz.GetDraft)

		api.GET("/reports/:id", middleware.NoStore(), handlers.Quiz.GetReport)
		api.GET("/users/:user_id/reports", middleware.NoStore(), handlers.Quiz.ListUserReports)

		api.POST("/markup/tokenize", tokenizeLimiter.Middleware(), handlers.Markup.Tokenize)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/exams/:id/stream", handlers.WS.ExamWebSocketStream)
	}

	// ─── 3. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.NoStore())
	{
		adminAPI.POST("/media/upload", handlers.Media.UploadMedia)

		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.PUT("/exams/:id/questions", handlers.Exam.ReplaceQuestions)
		adminAPI.POST("/exams/:id/publish", handlers.Exam.PublishExam)
		adminAPI.POST("/exams/:id/archive", handlers.Exam.ArchiveExam)
		adminAPI.POST("/exams/:id/refresh-cache", handlers.Exam.RefreshExamCache)
		adminAPI.GET("/exams/:id/reports", handlers.Exam.ListExamReports)
		adminAPI.GET("/exams/:id/monitor", handlers.Monitor.MonitorExamSSE)
	}

	return router
}
