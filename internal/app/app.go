package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	httpx "github.com/yungbote/gitguide-backend/internal/http"
	"github.com/yungbote/gitguide-backend/internal/observability"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *httpx.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(ctx, log, cfg)
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	shutdown := observability.InitOTel(ctx, log, cfg.Otel)

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = shutdown(ctx)
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(clients.DB, log)
	serviceset, err := wireServices(log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = shutdown(ctx)
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, cfg, clients, serviceset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       wireServer(log, cfg, handlerset),
		otelShutdown: shutdown,
	}, nil
}

// Run serves HTTP and polls the Temporal worker (each when enabled) until
// ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	if a.Services.TemporalWorker != nil {
		g.Go(func() error {
			if err := a.Services.TemporalWorker.Start(gctx); err != nil {
				return fmt.Errorf("temporal worker: %w", err)
			}
			<-gctx.Done()
			return nil
		})
	}
	if a.Cfg.RunServer {
		addr := ":" + a.Cfg.Port
		a.Log.Info("Starting HTTP server", "addr", addr)
		g.Go(func() error { return a.Server.Run(gctx, addr) })
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.LocalDispatcher != nil {
		_ = a.Services.LocalDispatcher.Close()
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
