package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/cyclecoach-backend/internal/http/handlers"
	httpMW "github.com/yungbote/cyclecoach-backend/internal/http/middleware"
	"github.com/yungbote/cyclecoach-backend/internal/observability"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	GenerationHandler *httpH.GenerationHandler
	TimelineHandler   *httpH.TimelineHandler
	RealtimeHandler   *httpH.RealtimeHandler
	HealthHandler     *httpH.HealthHandler
	MetricsHandler    *httpH.MetricsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", cfg.MetricsHandler.Serve)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		api.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
		api.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
	}

	// Generation jobs
	if cfg.GenerationHandler != nil {
		jobs := api.Group("/generation-jobs")
		jobs.POST("", cfg.GenerationHandler.Start)
		jobs.GET("/active", cfg.GenerationHandler.Resume)
		jobs.GET("/:request_id", cfg.GenerationHandler.Poll)
		jobs.GET("/:request_id/stream", cfg.GenerationHandler.Stream)
		jobs.POST("/:request_id/cancel", cfg.GenerationHandler.Cancel)
		jobs.POST("/:request_id/await-visibility", cfg.GenerationHandler.AwaitVisibility)
	}

	// Timeline
	if cfg.TimelineHandler != nil {
		api.GET("/timeline", cfg.TimelineHandler.GetTimeline)
	}

	return r
}
