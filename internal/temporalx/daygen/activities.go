package daygen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
	"github.com/yungbote/gitguide-backend/internal/services"
)

const defaultHeartbeatInterval = 10 * time.Second

type Activities struct {
	Log        *logger.Logger
	Generation services.DayGenerationService
	// HeartbeatInterval paces heartbeats while the generator runs; it must
	// stay well under the activity's HeartbeatTimeout.
	HeartbeatInterval time.Duration

	recordHeartbeat func(ctx context.Context, details ...interface{})
}

func (a *Activities) Generate(ctx context.Context, req progression.GenerationRequest) (progression.DayContent, error) {
	if a == nil || a.Generation == nil {
		return progression.DayContent{}, fmt.Errorf("daygen: activity not configured")
	}
	stop := a.startHeartbeat(ctx)
	content, err := a.Generation.Generate(ctx, req)
	stop()
	if err != nil {
		return progression.DayContent{}, nonRetryable(err)
	}
	return content, nil
}

// startHeartbeat beats once right away and then on a ticker until the
// returned stop func is called, so a long LLM call does not trip the
// heartbeat timeout.
func (a *Activities) startHeartbeat(ctx context.Context) func() {
	record := a.recordHeartbeat
	if record == nil {
		record = activity.RecordHeartbeat
	}
	interval := a.HeartbeatInterval
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	record(ctx, "generating")

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		hb := time.NewTicker(interval)
		defer hb.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-hb.C:
				record(ctx, "generating")
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (a *Activities) Apply(ctx context.Context, in ApplyInput) (Result, error) {
	if a == nil || a.Generation == nil {
		return Result{}, fmt.Errorf("daygen: activity not configured")
	}
	res, err := a.Generation.Apply(ctx, in.Request, in.Content)
	if err != nil {
		return Result{}, nonRetryable(err)
	}
	if a.Log != nil {
		a.Log.Info("day content applied", "project_id", in.Request.ProjectID, "day_number", in.Request.DayNumber, "applied", res.Applied, "tasks", res.Tasks)
	}
	return Result{
		DayNumber:        res.DayNumber,
		Applied:          res.Applied,
		AlreadyGenerated: res.AlreadyGenerated,
		Concepts:         res.Concepts,
		Subconcepts:      res.Subconcepts,
		Tasks:            res.Tasks,
	}, nil
}

func (a *Activities) Release(ctx context.Context, req progression.GenerationRequest) error {
	if a == nil || a.Generation == nil {
		return fmt.Errorf("daygen: activity not configured")
	}
	return nonRetryable(a.Generation.Release(ctx, req))
}

// nonRetryable stops Temporal from retrying errors a retry cannot fix.
func nonRetryable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, progression.ErrInvalidArgument) || errors.Is(err, progression.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "progression_rejected", err)
	}
	return err
}
