package app

import (
	"strings"

	githubclient "github.com/yungbote/gitguide-backend/internal/clients/github"
	openaiclient "github.com/yungbote/gitguide-backend/internal/clients/openai"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/observability"
	"github.com/yungbote/gitguide-backend/internal/platform/envutil"
	"github.com/yungbote/gitguide-backend/internal/realtime/bus"
	"github.com/yungbote/gitguide-backend/internal/temporalx"
)

const ServiceName = "gitguide-backend"

type Config struct {
	Port        string
	LogMode     string
	CORSOrigins []string

	RunServer bool
	RunWorker bool

	DatabaseDriver string
	SQLitePath     string
	AutoMigrate    bool

	// GenerationLocalConcurrency bounds the in-process generation pool used
	// when Temporal is not configured.
	GenerationLocalConcurrency int

	Progression progression.Config
	GitHub      githubclient.Config
	OpenAI      openaiclient.Config
	Redis       bus.RedisConfig
	Temporal    temporalx.Config
	Otel        observability.OtelConfig
}

func LoadConfig() Config {
	return Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		RunServer: envutil.Bool("RUN_SERVER", true),
		RunWorker: envutil.Bool("RUN_WORKER", true),

		DatabaseDriver: strings.ToLower(envutil.String("DATABASE_DRIVER", "postgres")),
		SQLitePath:     envutil.String("SQLITE_PATH", "gitguide.db"),
		AutoMigrate:    envutil.Bool("DATABASE_AUTO_MIGRATE", true),

		GenerationLocalConcurrency: envutil.Int("GENERATION_LOCAL_CONCURRENCY", 4),

		Progression: progression.LoadConfig(),
		GitHub:      githubclient.LoadConfig(),
		OpenAI:      openaiclient.LoadConfig(),
		Redis:       bus.LoadRedisConfig(),
		Temporal:    temporalx.LoadConfig(),
		Otel:        observability.LoadOtelConfig(ServiceName),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
