package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/cyclecoach-backend/internal/data/db"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/envutil"
	"github.com/yungbote/cyclecoach-backend/internal/platform/gcp"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/platform/openai"
	"github.com/yungbote/cyclecoach-backend/internal/temporalx"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string

	DB db.Config

	JWTSecretKey   string
	AccessTokenTTL time.Duration
	AllowedOrigins []string

	// RunWorker is off on API-only nodes.
	RunWorker          bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	StaleAfter         time.Duration

	VerifyMaxAttempts  int
	VerifyInterval     time.Duration
	StreamPollInterval time.Duration

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisChannel       string
	ActivePlanCacheTTL time.Duration

	Temporal temporalx.Config
	OpenAI   openai.Config
	Archive  gcp.ArchiveConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "cyclecoach-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		DB: db.Config{
			Driver:       envutil.String("DB_DRIVER", db.DriverPostgres),
			Host:         envutil.String("POSTGRES_HOST", "localhost"),
			Port:         envutil.String("POSTGRES_PORT", "5432"),
			User:         envutil.String("POSTGRES_USER", "postgres"),
			Password:     envutil.String("POSTGRES_PASSWORD", ""),
			Name:         envutil.String("POSTGRES_NAME", "cyclecoach"),
			SSLMode:      envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:   envutil.String("SQLITE_PATH", ""),
			MaxOpenConns: envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envutil.Int("DB_MAX_IDLE_CONNS", 10),
		},

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
		AllowedOrigins: splitCSV(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		RunWorker:          envutil.Bool("RUN_WORKER", true),
		WorkerConcurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerPollInterval: envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
		StaleAfter:         envutil.Duration("GENERATION_STALE_AFTER", types.DefaultStaleAfter),

		VerifyMaxAttempts:  envutil.Int("VERIFY_MAX_ATTEMPTS", 10),
		VerifyInterval:     envutil.Duration("VERIFY_INTERVAL", 500*time.Millisecond),
		StreamPollInterval: envutil.Duration("STREAM_POLL_INTERVAL", 2*time.Second),

		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		RedisPassword:      envutil.String("REDIS_PASSWORD", ""),
		RedisDB:            envutil.Int("REDIS_DB", 0),
		RedisChannel:       envutil.String("REDIS_CHANNEL", "cyclecoach:sse"),
		ActivePlanCacheTTL: envutil.Duration("ACTIVE_PLAN_CACHE_TTL", 5*time.Minute),

		Temporal: temporalx.LoadConfig(),
		OpenAI: openai.Config{
			APIKey:      envutil.String("OPENAI_API_KEY", ""),
			BaseURL:     envutil.String("OPENAI_BASE_URL", ""),
			Model:       envutil.String("OPENAI_MODEL", ""),
			Timeout:     envutil.Duration("OPENAI_TIMEOUT", 180*time.Second),
			MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 2),
			Temperature: floatPtr(envutil.String("OPENAI_TEMPERATURE", "")),
		},
		Archive: gcp.ArchiveConfig{
			Bucket:       envutil.String("PLAN_ARCHIVE_GCS_BUCKET", ""),
			Prefix:       envutil.String("PLAN_ARCHIVE_PREFIX", "plans"),
			EmulatorHost: envutil.String("PLAN_ARCHIVE_EMULATOR_HOST", ""),
		},
	}

	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set; using development default")
	}
	log.Info("Config loaded",
		"port", cfg.Port,
		"db_driver", cfg.DB.Driver,
		"redis", cfg.RedisAddr != "",
		"temporal", cfg.Temporal.Enabled(),
		"openai", cfg.OpenAI.APIKey != "",
		"plan_archive", cfg.Archive.Bucket != "",
	)
	return cfg
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func floatPtr(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}
