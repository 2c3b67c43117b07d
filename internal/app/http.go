package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/http"
	httpH "github.com/yungbote/cyclecoach-backend/internal/http/handlers"
	httpMW "github.com/yungbote/cyclecoach-backend/internal/http/middleware"
	"github.com/yungbote/cyclecoach-backend/internal/observability"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Metrics    *httpH.MetricsHandler
	Generation *httpH.GenerationHandler
	Timeline   *httpH.TimelineHandler
	Realtime   *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, serviceset Services, hub *realtime.SSEHub, m *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	var metrics *httpH.MetricsHandler
	if m != nil {
		metrics = httpH.NewMetricsHandler(m)
	}
	return Handlers{
		Health:  httpH.NewHealthHandler(db),
		Metrics: metrics,
		Generation: httpH.NewGenerationHandler(httpH.GenerationHandlerDeps{
			Log:                log,
			Queue:              serviceset.Queue,
			Verifier:           serviceset.Verifier,
			Hub:                hub,
			VerifyMaxAttempts:  cfg.VerifyMaxAttempts,
			VerifyInterval:     cfg.VerifyInterval,
			StreamPollInterval: cfg.StreamPollInterval,
		}),
		Timeline: httpH.NewTimelineHandler(serviceset.Timeline),
		Realtime: httpH.NewRealtimeHandler(log, hub, serviceset.Queue),
	}
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, serviceset.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, m *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:               log,
		ServiceName:       cfg.ServiceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		Metrics:           m,
		AuthMiddleware:    middleware.Auth,
		GenerationHandler: handlers.Generation,
		TimelineHandler:   handlers.Timeline,
		RealtimeHandler:   handlers.Realtime,
		HealthHandler:     handlers.Health,
		MetricsHandler:    handlers.Metrics,
	})
}
