package app

import (
	"fmt"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
	"github.com/yungbote/gitguide-backend/internal/services"
	"github.com/yungbote/gitguide-backend/internal/temporalx/daygen"
	"github.com/yungbote/gitguide-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Engine     *progression.Engine
	Generation services.DayGenerationService

	// Exactly one of these dispatches generation.
	LocalDispatcher    *services.LocalGenerationDispatcher
	TemporalDispatcher *daygen.Dispatcher

	TemporalWorker *temporalworker.Runner
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	engine, err := progression.New(progression.Deps{
		DB:          clients.DB,
		Log:         log,
		Projects:    repos.Project,
		Days:        repos.Day,
		Concepts:    repos.Concept,
		Subconcepts: repos.Subconcept,
		Tasks:       repos.Task,
		Verifier:    clients.Verifier,
		Events:      clients.Bus,
		Config:      cfg.Progression,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init progression engine: %w", err)
	}

	generation, err := services.NewDayGenerationService(log, engine, clients.Generator)
	if err != nil {
		return Services{}, fmt.Errorf("init day generation: %w", err)
	}

	out := Services{Engine: engine, Generation: generation}
	if clients.Temporal != nil {
		d, err := daygen.NewDispatcher(log, clients.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal dispatcher: %w", err)
		}
		engine.SetDispatcher(d)
		out.TemporalDispatcher = d

		if cfg.RunWorker {
			w, err := temporalworker.NewRunner(log, clients.Temporal, cfg.Temporal, generation)
			if err != nil {
				return Services{}, fmt.Errorf("init temporal worker: %w", err)
			}
			out.TemporalWorker = w
		}
	} else {
		d, err := services.NewLocalGenerationDispatcher(log, generation, cfg.GenerationLocalConcurrency)
		if err != nil {
			return Services{}, fmt.Errorf("init local dispatcher: %w", err)
		}
		engine.SetDispatcher(d)
		out.LocalDispatcher = d
	}
	return out, nil
}
