package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

// PlanArchive stores raw generated plan documents for later inspection.
type PlanArchive interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

type ArchiveConfig struct {
	Bucket string
	Prefix string
	// EmulatorHost points the client at a fake-gcs-server style emulator.
	EmulatorHost string
}

type gcsArchive struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	prefix string
}

func NewPlanArchive(ctx context.Context, log *logger.Logger, cfg ArchiveConfig) (PlanArchive, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing archive bucket")
	}
	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &gcsArchive{
		log:    log.With("service", "PlanArchive", "bucket", bucket),
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (a *gcsArchive) objectName(key string) string {
	if a.prefix == "" {
		return key
	}
	return path.Join(a.prefix, key)
}

func (a *gcsArchive) Put(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(a.objectName(key)).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write archive object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close archive writer: %w", err)
	}
	a.log.Debug("Archived plan document", "key", key, "bytes", len(data))
	return nil
}

func (a *gcsArchive) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	r, err := a.client.Bucket(a.bucket).Object(a.objectName(key)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open archive object: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (a *gcsArchive) Close() error {
	return a.client.Close()
}
