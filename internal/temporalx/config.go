package temporalx

import (
	"time"

	"github.com/yungbote/gitguide-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	AutoRegisterNamespace bool
	// NamespaceRetention applies only when the namespace is auto-registered.
	NamespaceRetention time.Duration

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout     time.Duration
	Dial            Backoff
	NamespaceEnsure Backoff
	WorkerStart     Backoff
	// WorkerConcurrency caps concurrent day generations per worker process.
	WorkerConcurrency int
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "gitguide"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "gitguide-daygen"),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceRetention:    time.Duration(clampInt(envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7), 1, 365)) * 24 * time.Hour,

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		DialTimeout: envutil.Duration("TEMPORAL_DIAL_TIMEOUT", 5*time.Second),
		Dial: Backoff{
			Base:    envutil.Duration("TEMPORAL_DIAL_BACKOFF", 250*time.Millisecond),
			Max:     envutil.Duration("TEMPORAL_DIAL_BACKOFF_MAX", 5*time.Second),
			MaxWait: envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", 60*time.Second),
		},
		NamespaceEnsure: Backoff{
			Base:    envutil.Duration("TEMPORAL_NAMESPACE_ENSURE_BACKOFF", 250*time.Millisecond),
			Max:     envutil.Duration("TEMPORAL_NAMESPACE_ENSURE_BACKOFF_MAX", 5*time.Second),
			MaxWait: envutil.Duration("TEMPORAL_NAMESPACE_ENSURE_TIMEOUT", 10*time.Second),
		},
		WorkerStart: Backoff{
			Base:    envutil.Duration("TEMPORAL_WORKER_START_BACKOFF", 250*time.Millisecond),
			Max:     envutil.Duration("TEMPORAL_WORKER_START_BACKOFF_MAX", 5*time.Second),
			MaxWait: envutil.Duration("TEMPORAL_WORKER_START_MAX_WAIT", 60*time.Second),
		},
		WorkerConcurrency: clampInt(envutil.Int("WORKER_CONCURRENCY", 4), 1, 64),
	}
}

// Enabled reports whether a Temporal address is configured.
func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) mtls() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
