package progression

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

// RegenerateDay throws away a regular day's content and asks for a fresh
// generation. Completed days are refused; progress inside an incomplete day
// is discarded along with its rows.
func (e *Engine) RegenerateDay(ctx context.Context, projectID uuid.UUID, dayNumber int) (outcome GenerationOutcome, err error) {
	ctx, span := e.startSpan(ctx, "RegenerateDay", projectID, attribute.Int("day_number", dayNumber))
	defer func() { finishSpan(span, err) }()

	if err := validDayNumber(dayNumber); err != nil {
		return GenerationNotApplicable, err
	}
	if dayNumber == types.FirstDayNumber {
		return GenerationNotApplicable, invalid("day 0 cannot be regenerated")
	}

	inFlight := false
	err = e.inTx(ctx, "RegenerateDay", func(dbc dbctx.Context) error {
		day, err := e.dayFor(dbc, projectID, dayNumber)
		if err != nil {
			return err
		}
		if day.IsCompleted {
			return fmt.Errorf("day %d is completed: %w", dayNumber, ErrConflict)
		}
		if day.GenerationStarted && !day.ContentGenerated {
			inFlight = true
			return nil
		}
		if err := e.deleteDayDescendants(dbc, day.ID); err != nil {
			return err
		}
		if err := e.days.UpdateFields(dbc, day.ID, map[string]interface{}{
			"content_generated":  false,
			"generation_started": false,
			"progress_ratio":     0.0,
		}); err != nil {
			return err
		}
		res := CascadeResult{ProgressByLevel: map[Level]float64{}}
		return e.settleProject(dbc, projectID, &res)
	})
	if err != nil {
		return GenerationNotApplicable, err
	}
	if inFlight {
		return GenerationInFlight, nil
	}
	e.log.Info("day content discarded for regeneration", "project_id", projectID, "day_number", dayNumber)
	return e.EnsureGenerated(ctx, projectID, dayNumber)
}

// ReplaceConceptContent swaps the subconcepts and tasks of one incomplete
// concept for new content, then recomputes the day and its frontier.
func (e *Engine) ReplaceConceptContent(ctx context.Context, projectID, conceptID uuid.UUID, content ConceptContent) (res *ApplyResult, err error) {
	ctx, span := e.startSpan(ctx, "ReplaceConceptContent", projectID, attribute.String("concept_id", conceptID.String()))
	defer func() { finishSpan(span, err) }()

	if err := content.validate(0); err != nil {
		return nil, err
	}
	res = &ApplyResult{}
	err = e.inTx(ctx, "ReplaceConceptContent", func(dbc dbctx.Context) error {
		concept, err := e.concepts.GetByID(dbc, conceptID)
		if err != nil {
			return err
		}
		if concept == nil || concept.ProjectID != projectID {
			return notFound("concept", conceptID)
		}
		day, err := e.days.GetByID(dbc, concept.DayID)
		if err != nil {
			return err
		}
		if day == nil {
			return notFound("day", concept.DayID)
		}
		if day.DayNumber == types.FirstDayNumber {
			return invalid("day 0 concepts cannot be replaced")
		}
		if concept.IsCompleted {
			return fmt.Errorf("concept %s is completed: %w", conceptID, ErrConflict)
		}
		res.DayNumber = day.DayNumber

		subs, err := e.subconcepts.ListByConceptID(dbc, concept.ID)
		if err != nil {
			return err
		}
		subIDs := make([]uuid.UUID, 0, len(subs))
		for _, s := range subs {
			subIDs = append(subIDs, s.ID)
		}
		if err := e.tasks.DeleteBySubconceptIDs(dbc, subIDs); err != nil {
			return err
		}
		if err := e.subconcepts.DeleteByConceptID(dbc, concept.ID); err != nil {
			return err
		}
		if err := e.concepts.UpdateFields(dbc, concept.ID, map[string]interface{}{
			"title":          strings.TrimSpace(content.Title),
			"description":    content.Description,
			"progress_ratio": 0.0,
		}); err != nil {
			return err
		}
		nSubs, nTasks, err := e.insertSubconcepts(dbc, concept, content.Subconcepts)
		if err != nil {
			return err
		}
		res.Concepts, res.Subconcepts, res.Tasks = 1, nSubs, nTasks
		if concept.IsUnlocked {
			if err := e.subconcepts.UnlockByConceptID(dbc, concept.ID); err != nil {
				return err
			}
		}
		if err := e.applyFrontier(dbc, day); err != nil {
			return err
		}
		return e.settleDayTree(dbc, day)
	})
	if err != nil {
		return nil, err
	}
	res.Applied = true
	e.log.Info("concept content replaced", "project_id", projectID, "concept_id", conceptID, "subconcepts", res.Subconcepts, "tasks", res.Tasks)
	return res, nil
}

// ReplaceSubconceptTasks swaps the tasks of one incomplete subconcept.
func (e *Engine) ReplaceSubconceptTasks(ctx context.Context, projectID, subconceptID uuid.UUID, tasks []TaskContent) (res *ApplyResult, err error) {
	ctx, span := e.startSpan(ctx, "ReplaceSubconceptTasks", projectID, attribute.String("subconcept_id", subconceptID.String()))
	defer func() { finishSpan(span, err) }()

	if len(tasks) == 0 {
		return nil, invalid("replacement has no tasks")
	}
	for i, t := range tasks {
		if strings.TrimSpace(t.Title) == "" {
			return nil, invalid("task %d has no title", i)
		}
	}
	res = &ApplyResult{}
	err = e.inTx(ctx, "ReplaceSubconceptTasks", func(dbc dbctx.Context) error {
		sub, err := e.subconcepts.GetByID(dbc, subconceptID)
		if err != nil {
			return err
		}
		if sub == nil || sub.ProjectID != projectID {
			return notFound("subconcept", subconceptID)
		}
		if sub.IsCompleted {
			return fmt.Errorf("subconcept %s is completed: %w", subconceptID, ErrConflict)
		}
		day, err := e.days.GetByID(dbc, sub.DayID)
		if err != nil {
			return err
		}
		if day == nil {
			return notFound("day", sub.DayID)
		}
		if day.DayNumber == types.FirstDayNumber {
			return invalid("day 0 has no subconcepts")
		}
		res.DayNumber = day.DayNumber

		if err := e.tasks.DeleteBySubconceptIDs(dbc, []uuid.UUID{sub.ID}); err != nil {
			return err
		}
		if err := e.subconcepts.UpdateFields(dbc, sub.ID, map[string]interface{}{"progress_ratio": 0.0}); err != nil {
			return err
		}
		n, err := e.insertTasks(dbc, sub, tasks)
		if err != nil {
			return err
		}
		res.Tasks = n
		if err := e.applyFrontier(dbc, day); err != nil {
			return err
		}
		return e.settleDayTree(dbc, day)
	})
	if err != nil {
		return nil, err
	}
	res.Applied = true
	e.log.Info("subconcept tasks replaced", "project_id", projectID, "subconcept_id", subconceptID, "tasks", res.Tasks)
	return res, nil
}
