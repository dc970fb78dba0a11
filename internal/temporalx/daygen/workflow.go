package daygen

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

// Workflow generates one day's content and applies it. If either step fails
// for good, the day's generation claim is released so it can be requested
// again.
func Workflow(ctx workflow.Context, req progression.GenerationRequest) (Result, error) {
	var out Result
	if req.DayNumber < 1 {
		return out, temporal.NewNonRetryableApplicationError(fmt.Sprintf("day %d is not generated", req.DayNumber), "invalid_request", nil)
	}

	genCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})
	storeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})

	var content progression.DayContent
	err := workflow.ExecuteActivity(genCtx, ActivityGenerate, req).Get(genCtx, &content)
	if err == nil {
		err = workflow.ExecuteActivity(storeCtx, ActivityApply, ApplyInput{Request: req, Content: content}).Get(storeCtx, &out)
	}
	if err == nil {
		return out, nil
	}

	workflow.GetLogger(ctx).Warn("day generation failed; releasing claim", "project_id", req.ProjectID.String(), "day_number", req.DayNumber, "error", err)
	releaseCtx, _ := workflow.NewDisconnectedContext(storeCtx)
	if relErr := workflow.ExecuteActivity(releaseCtx, ActivityRelease, req).Get(releaseCtx, nil); relErr != nil {
		workflow.GetLogger(ctx).Error("release generation claim failed", "project_id", req.ProjectID.String(), "day_number", req.DayNumber, "error", relErr)
	}
	return out, err
}
