package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/gitguide-backend/internal/platform/logger"
	"github.com/yungbote/gitguide-backend/internal/services"
	"github.com/yungbote/gitguide-backend/internal/temporalx"
	"github.com/yungbote/gitguide-backend/internal/temporalx/daygen"
)

type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc         temporalsdkclient.Client
	generation services.DayGenerationService
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, generation services.DayGenerationService) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if log == nil || generation == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:        log.With("service", "TemporalWorker", "task_queue", cfg.TaskQueue),
		cfg:        cfg,
		tc:         tc,
		generation: generation,
	}, nil
}

// Start polls the day generation task queue until ctx is done. Start
// failures are retried on the WorkerStart schedule; a missing namespace is
// registered first when auto-registration is on.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace)

	if cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, r.log, cfg); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}

	err := cfg.WorkerStart.Retry(ctx, func(attempt int) (bool, error) {
		w := r.newWorker()
		if err := w.Start(); err != nil {
			w.Stop()
			var nfe *serviceerror.NamespaceNotFound
			if errors.As(err, &nfe) {
				if cfg.AutoRegisterNamespace {
					_ = temporalx.EnsureNamespace(ctx, r.log, cfg)
				}
				return true, fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, err)
			}
			return true, err
		}
		go func() {
			<-ctx.Done()
			w.Stop()
		}()
		r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "attempts", attempt, "concurrency", cfg.WorkerConcurrency)
		return false, nil
	}, func(attempt int, err error) {
		r.log.Warn("Temporal worker failed to start; retrying", "namespace", cfg.Namespace, "attempt", attempt, "error", err)
	})
	return err
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.WorkerConcurrency,
	})
	Register(w, &daygen.Activities{Log: r.log, Generation: r.generation})
	return w
}

// Register binds the day generation workflow and activities under their
// stable names.
func Register(w worker.Registry, acts *daygen.Activities) {
	w.RegisterWorkflowWithOptions(daygen.Workflow, workflow.RegisterOptions{Name: daygen.WorkflowName})
	w.RegisterActivityWithOptions(acts.Generate, activity.RegisterOptions{Name: daygen.ActivityGenerate})
	w.RegisterActivityWithOptions(acts.Apply, activity.RegisterOptions{Name: daygen.ActivityApply})
	w.RegisterActivityWithOptions(acts.Release, activity.RegisterOptions{Name: daygen.ActivityRelease})
}
