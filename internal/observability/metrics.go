package observability

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/envutil"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	generations  *CounterVec
	generationDu *HistogramVec
	queueDepth   *GaugeVec
	redisUp      *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current returns the process-wide metrics, or nil when disabled. All methods
// are nil-safe.
func Current() *Metrics { return instance }

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		log.Info("metrics enabled")
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("cc_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("cc_api_request_duration_seconds", "API request latency by method/route.",
			[]string{"method", "route"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}),
		apiInflight: NewGauge("cc_api_inflight_requests", "In-flight API requests."),
		generations: NewCounterVec("cc_generation_runs_total", "Generation runs by kind/outcome.", []string{"kind", "outcome"}),
		generationDu: NewHistogramVec("cc_generation_run_duration_seconds", "Generation run duration by kind/outcome.",
			[]string{"kind", "outcome"},
			[]float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}),
		queueDepth: NewGaugeVec("cc_generation_jobs", "Generation jobs by status.", []string{"status"}),
		redisUp:    NewGauge("cc_redis_up", "1 when the last redis ping succeeded."),
	}
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.generations, m.generationDu, m.queueDepth, m.redisUp,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Add(1)
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Add(-1)
	}
}

// ObserveGeneration records one handler execution. outcome is ok, error,
// panic or missing_handler.
func (m *Metrics) ObserveGeneration(kind, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.generations.Inc(kind, outcome)
	m.generationDu.Observe(dur.Seconds(), kind, outcome)
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL", 10*time.Second)
}

// StartJobQueueCollector samples generation_job counts by status.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.collectQueueDepth(ctx, db); err != nil {
					log.Warn("metrics: generation queue depth query failed", "error", err)
				}
			}
		}
	}()
}

func (m *Metrics) collectQueueDepth(ctx context.Context, db *gorm.DB) error {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&types.GenerationJob{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range []string{
		types.GenerationStatusPending,
		types.GenerationStatusInProgress,
		types.GenerationStatusCompleted,
		types.GenerationStatusFailed,
	} {
		m.queueDepth.Set(0, s)
	}
	for _, row := range rows {
		status := strings.TrimSpace(row.Status)
		if status == "" {
			status = "unknown"
		}
		m.queueDepth.Set(float64(row.Count), status)
	}
	return nil
}

// StartRedisCollector pings the shared client on every scrape.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					log.Warn("metrics: redis ping failed", "error", err)
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}
