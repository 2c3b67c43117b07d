package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/cyclecoach-backend/internal/platform/gcp"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/platform/openai"
	"github.com/yungbote/cyclecoach-backend/internal/realtime/bus"
	"github.com/yungbote/cyclecoach-backend/internal/temporalx"
)

// Clients holds the external connections. Every field is optional and nil when
// its env is unset.
type Clients struct {
	Redis    *goredis.Client
	Bus      bus.Bus
	Temporal temporalsdkclient.Client
	OpenAI   openai.Client
	Archive  gcp.PlanArchive
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if cfg.RedisAddr != "" {
		rdb, err := bus.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.Redis = rdb
		out.Bus = b
	} else {
		out.Bus = bus.NewLocalBus()
	}

	// Temporal
	tc, err := temporalx.NewClient(log, cfg.Temporal)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	out.Temporal = tc

	// Openai
	if cfg.OpenAI.APIKey != "" {
		oc, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.OpenAI = oc
	} else {
		log.Warn("OPENAI_API_KEY not set; using the template generator")
	}

	// Gcs
	if cfg.Archive.Bucket != "" {
		archive, err := gcp.NewPlanArchive(ctx, log, cfg.Archive)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init plan archive: %w", err)
		}
		out.Archive = archive
	}

	return out, nil
}

func (c Clients) Close() {
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
