package daygen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	enums "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/ctxutil"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

// Dispatcher starts one day_generation workflow per requested day.
type Dispatcher struct {
	log       *logger.Logger
	tc        workflowStarter
	taskQueue string
}

var _ progression.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string) (*Dispatcher, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return newDispatcher(log, tc, taskQueue)
}

func newDispatcher(log *logger.Logger, tc workflowStarter, taskQueue string) (*Dispatcher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	tq := strings.TrimSpace(taskQueue)
	if tq == "" {
		return nil, fmt.Errorf("task queue required")
	}
	return &Dispatcher{log: log.With("service", "DayGenDispatcher"), tc: tc, taskQueue: tq}, nil
}

// RequestGeneration starts the workflow. A run already in progress for the
// same day counts as success. A closed run may be started again, which is
// what regeneration relies on.
func (d *Dispatcher) RequestGeneration(ctx context.Context, req progression.GenerationRequest) error {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                       WorkflowID(req),
		TaskQueue:                d.taskQueue,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enums.WORKFLOW_ID_CONFLICT_POLICY_FAIL,
		Memo:                     workflowMemo(ctx, req),

		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	run, err := d.tc.ExecuteWorkflow(ctx, opts, WorkflowName, req)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			d.log.Debug("day generation already running", "workflow_id", opts.ID)
			return nil
		}
		return fmt.Errorf("start %s: %w", opts.ID, err)
	}
	d.log.Info("day generation workflow started", append([]interface{}{"workflow_id", run.GetID(), "run_id", run.GetRunID()}, ctxutil.TraceFrom(ctx).LogFields()...)...)
	return nil
}

// workflowMemo ties the run back to the request that asked for it.
func workflowMemo(ctx context.Context, req progression.GenerationRequest) map[string]interface{} {
	memo := ctxutil.TraceFrom(ctx).Memo()
	if memo == nil {
		memo = map[string]interface{}{}
	}
	memo["project_id"] = req.ProjectID.String()
	memo["day_number"] = strconv.Itoa(req.DayNumber)
	return memo
}
