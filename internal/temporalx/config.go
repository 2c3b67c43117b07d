package temporalx

import (
	"strings"

	"github.com/yungbote/cyclecoach-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string
}

func LoadConfig() Config {
	return Config{
		Address:   strings.TrimSpace(envutil.String("TEMPORAL_ADDRESS", "")),
		Namespace: strings.TrimSpace(envutil.String("TEMPORAL_NAMESPACE", "cyclecoach")),
		TaskQueue: strings.TrimSpace(envutil.String("TEMPORAL_TASK_QUEUE", "cyclecoach")),

		ClientCertPath: strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_CERT_PATH", "")),
		ClientKeyPath:  strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_KEY_PATH", "")),
		ClientCAPath:   strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_CA_PATH", "")),
	}
}

// Enabled reports whether generation runs should be dispatched through Temporal.
func (c Config) Enabled() bool { return c.Address != "" }
