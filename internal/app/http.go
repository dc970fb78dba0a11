package app

import (
	"strings"

	httpx "github.com/yungbote/gitguide-backend/internal/http"
	httpH "github.com/yungbote/gitguide-backend/internal/http/handlers"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Project *httpH.ProjectHandler
	Day     *httpH.DayHandler
	Task    *httpH.TaskHandler
	Events  *httpH.EventsHandler
}

func wireHandlers(log *logger.Logger, cfg Config, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if sqlDB, err := clients.DB.DB(); err == nil {
		pinger = sqlDB
	}
	var events *httpH.EventsHandler
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		events = httpH.NewEventsHandler(log, clients.Bus)
	}
	return Handlers{
		Health:  httpH.NewHealthHandler(pinger),
		Project: httpH.NewProjectHandler(services.Engine),
		Day:     httpH.NewDayHandler(services.Engine),
		Task:    httpH.NewTaskHandler(services.Engine),
		Events:  events,
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers) *httpx.Server {
	return httpx.NewServer(httpx.RouterConfig{
		ServiceName:    cfg.Otel.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,
		Log:            log.With("service", "HTTP"),
		HealthHandler:  handlers.Health,
		ProjectHandler: handlers.Project,
		DayHandler:     handlers.Day,
		TaskHandler:    handlers.Task,
		EventsHandler:  handlers.Events,
	})
}
