package app

import (
	"context"
	"fmt"
	"strings"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	githubclient "github.com/yungbote/gitguide-backend/internal/clients/github"
	openaiclient "github.com/yungbote/gitguide-backend/internal/clients/openai"
	dbpkg "github.com/yungbote/gitguide-backend/internal/data/db"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
	"github.com/yungbote/gitguide-backend/internal/realtime/bus"
	"github.com/yungbote/gitguide-backend/internal/services"
	"github.com/yungbote/gitguide-backend/internal/temporalx"
)

type Clients struct {
	DB        *gorm.DB
	Bus       bus.Bus
	Temporal  temporalsdkclient.Client
	Verifier  progression.Verifier
	Generator progression.ContentGenerator
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	db, err := openDatabase(log, cfg)
	if err != nil {
		return Clients{}, err
	}
	out := Clients{DB: db}

	// Redis
	out.Bus = bus.NewNoopBus()
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		b, err := bus.NewRedisBus(log, cfg.Redis)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis progress bus: %w", err)
		}
		out.Bus = b
	}

	// Temporal
	if cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(context.Background(), log, cfg.Temporal)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		out.Temporal = tc
	}

	// GitHub
	verifier, err := githubclient.NewVerifier(log, cfg.GitHub)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init github verifier: %w", err)
	}
	out.Verifier = verifier

	// Openai
	if strings.TrimSpace(cfg.OpenAI.APIKey) != "" {
		gen, err := openaiclient.NewDayGenerator(log, cfg.OpenAI)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init openai day generator: %w", err)
		}
		out.Generator = gen
	} else {
		log.Warn("OPENAI_API_KEY not set; generating outline content")
		out.Generator = services.NewOutlineGenerator()
	}

	return out, nil
}

func openDatabase(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		db, err := dbpkg.OpenSQLite(cfg.SQLitePath, false)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		if cfg.AutoMigrate {
			if err := dbpkg.AutoMigrateAll(db); err != nil {
				return nil, fmt.Errorf("sqlite automigrate: %w", err)
			}
		}
		log.Info("Using SQLite store", "path", cfg.SQLitePath)
		return db, nil
	case "", "postgres":
		pg, err := dbpkg.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if cfg.AutoMigrate {
			if err := pg.AutoMigrateAll(); err != nil {
				return nil, fmt.Errorf("postgres automigrate: %w", err)
			}
		}
		return pg.DB(), nil
	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
