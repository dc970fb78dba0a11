package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/apierr"
)

// ProgressionEngine is what the HTTP surface calls on the engine.
type ProgressionEngine interface {
	InitializeProject(ctx context.Context, in progression.ProjectInput) (*types.Project, bool, error)
	Snapshot(ctx context.Context, projectID uuid.UUID) (*progression.ProgressSnapshot, error)
	RecomputeAll(ctx context.Context, projectID uuid.UUID) (*progression.ProgressSnapshot, error)

	DayStatus(ctx context.Context, projectID uuid.UUID, dayNumber int) (*progression.DayReport, error)
	TryUnlockDay(ctx context.Context, projectID uuid.UUID, dayNumber int) (*progression.UnlockResult, error)
	EnsureGenerated(ctx context.Context, projectID uuid.UUID, dayNumber int) (progression.GenerationOutcome, error)
	RegenerateDay(ctx context.Context, projectID uuid.UUID, dayNumber int) (progression.GenerationOutcome, error)
	ApplyGeneratedContent(ctx context.Context, projectID uuid.UUID, dayNumber int, content progression.DayContent) (*progression.ApplyResult, error)

	CompleteTask(ctx context.Context, projectID, taskID uuid.UUID) (*progression.CompletionResult, error)
	VerifyTask(ctx context.Context, projectID, taskID uuid.UUID, in progression.VerificationInput) (*progression.VerificationResult, error)
}

func uuidParam(c *gin.Context, name, code string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.BadRequest(code, fmt.Errorf("invalid %s", name))
	}
	return id, nil
}

func dayParam(c *gin.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		return 0, apierr.BadRequest("invalid_day_number", fmt.Errorf("day must be a number"))
	}
	return n, nil
}

func projectAndDay(c *gin.Context) (uuid.UUID, int, error) {
	projectID, err := uuidParam(c, "id", "invalid_project_id")
	if err != nil {
		return uuid.Nil, 0, err
	}
	n, err := dayParam(c)
	if err != nil {
		return uuid.Nil, 0, err
	}
	return projectID, n, nil
}
