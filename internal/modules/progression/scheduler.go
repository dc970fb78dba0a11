package progression

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

// OnDayCompleted makes sure the day after a completed day has content or
// has a generation on the way. It does not wait for the content.
func (e *Engine) OnDayCompleted(ctx context.Context, projectID uuid.UUID, dayNumber int) (GenerationOutcome, error) {
	if err := validDayNumber(dayNumber); err != nil {
		return GenerationNotApplicable, err
	}
	if dayNumber == types.LastDayNumber {
		return GenerationNotApplicable, nil
	}
	day, err := e.dayFor(dbctx.New(ctx), projectID, dayNumber)
	if err != nil {
		return GenerationNotApplicable, classifyStoreError("OnDayCompleted", err)
	}
	if !day.IsCompleted {
		return GenerationNotApplicable, nil
	}
	return e.EnsureGenerated(ctx, projectID, dayNumber+1)
}

// EnsureGenerated dispatches generation for a day at most once. The
// generation_started flag is claimed with a single-row compare-and-set, so
// concurrent callers see exactly one GenerationTriggered. The dispatcher is
// called with no transaction open; if it fails the claim is released.
func (e *Engine) EnsureGenerated(ctx context.Context, projectID uuid.UUID, dayNumber int) (outcome GenerationOutcome, err error) {
	ctx, span := e.startSpan(ctx, "EnsureGenerated", projectID, attribute.Int("day_number", dayNumber))
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		finishSpan(span, err)
	}()

	if err := validDayNumber(dayNumber); err != nil {
		return GenerationNotApplicable, err
	}
	if dayNumber == types.FirstDayNumber {
		// Day 0 content is created with the project.
		return AlreadyGenerated, nil
	}

	var day *types.Day
	err = e.inTx(ctx, "EnsureGenerated", func(dbc dbctx.Context) error {
		d, err := e.dayFor(dbc, projectID, dayNumber)
		if err != nil {
			return err
		}
		day = d
		switch {
		case d.ContentGenerated:
			outcome = AlreadyGenerated
			return nil
		case d.GenerationStarted:
			outcome = GenerationInFlight
			return nil
		}
		won, err := e.days.ClaimGeneration(dbc, d.ID)
		if err != nil {
			return err
		}
		if won {
			outcome = GenerationTriggered
			return nil
		}
		// Lost the race; report what the winner left behind.
		d, err = e.dayFor(dbc, projectID, dayNumber)
		if err != nil {
			return err
		}
		if d.ContentGenerated {
			outcome = AlreadyGenerated
		} else {
			outcome = GenerationInFlight
		}
		return nil
	})
	if err != nil {
		return GenerationNotApplicable, err
	}
	if outcome != GenerationTriggered {
		return outcome, nil
	}

	req := GenerationRequest{ProjectID: projectID, DayID: day.ID, DayNumber: dayNumber}
	if err := e.dispatch(ctx, req); err != nil {
		e.log.Error("generation dispatch failed, releasing claim", "project_id", projectID, "day_number", dayNumber, "error", err)
		if _, rerr := e.ReleaseGeneration(ctx, projectID, dayNumber); rerr != nil {
			e.log.Error("release generation claim failed", "project_id", projectID, "day_number", dayNumber, "error", rerr)
		}
		return GenerationNotApplicable, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	e.log.Info("day generation requested", "project_id", projectID, "day_number", dayNumber)
	e.publish(ctx, ProgressEvent{Type: EventGenerationRequested, ProjectID: projectID, DayNumber: intPtr(dayNumber)})
	return GenerationTriggered, nil
}

func (e *Engine) dispatch(ctx context.Context, req GenerationRequest) error {
	if e.dispatcher == nil {
		return fmt.Errorf("no generation dispatcher configured")
	}
	return e.dispatcher.RequestGeneration(ctx, req)
}

// Brief loads what a generator needs to fill one regular day.
func (e *Engine) Brief(ctx context.Context, projectID uuid.UUID, dayNumber int) (*DayBrief, error) {
	if dayNumber < 1 || dayNumber > types.LastDayNumber {
		return nil, invalid("day %d is not a generated day", dayNumber)
	}
	dbc := dbctx.New(ctx)
	project, err := e.projects.GetByID(dbc, projectID)
	if err != nil {
		return nil, classifyStoreError("Brief", err)
	}
	if project == nil {
		return nil, notFound("project", projectID)
	}
	day, err := e.dayFor(dbc, projectID, dayNumber)
	if err != nil {
		return nil, classifyStoreError("Brief", err)
	}
	return &DayBrief{
		ProjectID:      project.ID,
		ProjectName:    project.Name,
		RepoURL:        project.RepoURL,
		SkillLevel:     project.SkillLevel,
		Domain:         project.Domain,
		DayNumber:      day.DayNumber,
		DayName:        day.Name,
		DayDescription: day.Description,
	}, nil
}

// ReleaseGeneration clears an outstanding generation claim so the day can be
// dispatched again. Generators call it when they give up. It reports whether
// a claim was released; a day whose content already landed is left alone.
func (e *Engine) ReleaseGeneration(ctx context.Context, projectID uuid.UUID, dayNumber int) (bool, error) {
	if err := validDayNumber(dayNumber); err != nil {
		return false, err
	}
	var released bool
	err := e.inTx(ctx, "ReleaseGeneration", func(dbc dbctx.Context) error {
		day, err := e.dayFor(dbc, projectID, dayNumber)
		if err != nil {
			return err
		}
		released, err = e.days.ReleaseGeneration(dbc, day.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	if released {
		e.log.Warn("generation claim released", "project_id", projectID, "day_number", dayNumber)
	}
	return released, nil
}
