package progression

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

// settle recomputes one non-leaf node from its child counts. Completion is
// monotonic: a completed node stays completed with ratio 1. It returns the
// column updates needed (nil when nothing changed) and whether this call
// completed the node.
func settle(isCompleted *bool, ratio *float64, done, total int) (map[string]interface{}, bool) {
	next := 0.0
	if total > 0 {
		next = float64(done) / float64(total)
	}
	newly := false
	if !*isCompleted && total > 0 && done == total {
		newly = true
	}
	if *isCompleted || newly {
		next = 1
	}
	updates := map[string]interface{}{}
	if next != *ratio {
		updates["progress_ratio"] = next
		*ratio = next
	}
	if newly {
		updates["is_completed"] = true
		*isCompleted = true
	}
	if len(updates) == 0 {
		return nil, false
	}
	return updates, newly
}

// cascadeFrom recomputes every ancestor of task bottom-up inside dbc. Each
// level is reloaded from the store, so a retry after a partial failure
// converges on the same state.
func (e *Engine) cascadeFrom(dbc dbctx.Context, task *types.Task) (CascadeResult, error) {
	res := CascadeResult{ProgressByLevel: map[Level]float64{}}

	var conceptID uuid.UUID
	switch {
	case task.SubconceptID != nil:
		sub, err := e.subconcepts.GetByID(dbc, *task.SubconceptID)
		if err != nil {
			return res, err
		}
		if sub == nil {
			return res, notFound("subconcept", *task.SubconceptID)
		}
		tasks, err := e.tasks.ListBySubconceptID(dbc, sub.ID)
		if err != nil {
			return res, err
		}
		updates, newly := settle(&sub.IsCompleted, &sub.ProgressRatio, countDone(tasks), len(tasks))
		if err := e.subconcepts.UpdateFields(dbc, sub.ID, updates); err != nil {
			return res, err
		}
		res.SubconceptCompleted = newly
		res.ProgressByLevel[LevelSubconcept] = sub.ProgressRatio
		conceptID = sub.ConceptID
	case task.ConceptID != nil:
		conceptID = *task.ConceptID
	default:
		return res, fmt.Errorf("task %s: %w", task.ID, types.ErrTaskOwner)
	}

	concept, err := e.settleConcept(dbc, conceptID, &res)
	if err != nil {
		return res, err
	}
	day, err := e.settleDay(dbc, concept.DayID, &res)
	if err != nil {
		return res, err
	}
	res.DayNumber = day.DayNumber
	if err := e.settleProject(dbc, day.ProjectID, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) settleConcept(dbc dbctx.Context, conceptID uuid.UUID, res *CascadeResult) (*types.Concept, error) {
	concept, err := e.concepts.GetByID(dbc, conceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, notFound("concept", conceptID)
	}
	subs, err := e.subconcepts.ListByConceptID(dbc, concept.ID)
	if err != nil {
		return nil, err
	}
	var done, total int
	if len(subs) > 0 {
		total = len(subs)
		for _, s := range subs {
			if s.IsCompleted {
				done++
			}
		}
	} else {
		// Day 0 concepts own their tasks directly.
		tasks, err := e.tasks.ListByConceptID(dbc, concept.ID)
		if err != nil {
			return nil, err
		}
		done, total = countDone(tasks), len(tasks)
	}
	updates, newly := settle(&concept.IsCompleted, &concept.ProgressRatio, done, total)
	if err := e.concepts.UpdateFields(dbc, concept.ID, updates); err != nil {
		return nil, err
	}
	res.ConceptCompleted = newly
	res.ProgressByLevel[LevelConcept] = concept.ProgressRatio
	return concept, nil
}

func (e *Engine) settleDay(dbc dbctx.Context, dayID uuid.UUID, res *CascadeResult) (*types.Day, error) {
	day, err := e.days.GetByID(dbc, dayID)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, notFound("day", dayID)
	}
	concepts, err := e.concepts.ListByDayID(dbc, day.ID)
	if err != nil {
		return nil, err
	}
	done := 0
	for _, c := range concepts {
		if c.IsCompleted {
			done++
		}
	}
	updates, newly := settle(&day.IsCompleted, &day.ProgressRatio, done, len(concepts))
	// Day 0 only completes through verified tasks, so completion and the
	// verification gate are the same condition there.
	if day.IsCompleted && day.IsVerificationDay() && !day.IsVerified {
		if updates == nil {
			updates = map[string]interface{}{}
		}
		updates["is_verified"] = true
		day.IsVerified = true
	}
	if err := e.days.UpdateFields(dbc, day.ID, updates); err != nil {
		return nil, err
	}
	res.DayCompleted = newly
	res.ProgressByLevel[LevelDay] = day.ProgressRatio
	return day, nil
}

func (e *Engine) settleProject(dbc dbctx.Context, projectID uuid.UUID, res *CascadeResult) error {
	project, err := e.projects.GetByID(dbc, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return notFound("project", projectID)
	}
	days, err := e.days.ListByProjectID(dbc, projectID)
	if err != nil {
		return err
	}
	completed := 0
	for _, d := range days {
		if d.IsCompleted {
			completed++
		}
	}
	total := project.TotalDayCount
	if total <= 0 {
		total = types.TotalDayCount
	}
	ratio := float64(completed) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	updates := map[string]interface{}{}
	if completed != project.CompletedDayCount {
		updates["completed_day_count"] = completed
	}
	if ratio != project.ProgressRatio {
		updates["progress_ratio"] = ratio
	}
	if err := e.projects.UpdateFields(dbc, project.ID, updates); err != nil {
		return err
	}
	res.ProjectCompleted = completed >= total && project.CompletedDayCount < total
	res.ProgressByLevel[LevelProject] = ratio
	return nil
}

func countDone(tasks []*types.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Done() {
			n++
		}
	}
	return n
}

// CompleteTask marks a task completed and runs the ordered follow-ups:
// cascade, then the unlock attempt for the next day, then the generation
// trigger. Completing an already completed task skips the cascade but still
// re-runs the follow-ups, so a retry after a partial failure resumes them.
func (e *Engine) CompleteTask(ctx context.Context, projectID, taskID uuid.UUID) (res *CompletionResult, err error) {
	ctx, span := e.startSpan(ctx, "CompleteTask", projectID, attribute.String("task_id", taskID.String()))
	defer func() { finishSpan(span, err) }()

	res = &CompletionResult{Generation: GenerationNotApplicable}
	var day *types.Day
	err = e.inTx(ctx, "CompleteTask", func(dbc dbctx.Context) error {
		task, err := e.taskFor(dbc, projectID, taskID)
		if err != nil {
			return err
		}
		day, err = e.lockDay(dbc, projectID, task.DayID)
		if err != nil {
			return err
		}
		// Re-read under the day lock; a concurrent completion may have landed.
		task, err = e.taskFor(dbc, projectID, taskID)
		if err != nil {
			return err
		}
		res.Task = task
		if task.IsCompleted {
			res.Cascade = CascadeResult{AlreadyCompleted: true, DayNumber: day.DayNumber}
			return nil
		}
		// Only the frontier task of an unlocked day can be completed.
		if !day.IsUnlocked || !task.IsUnlocked {
			res.Locked = true
			res.Cascade = CascadeResult{DayNumber: day.DayNumber}
			return nil
		}
		now := e.now()
		if err := e.tasks.UpdateFields(dbc, task.ID, map[string]interface{}{
			"is_completed": true,
			"completed_at": now,
		}); err != nil {
			return err
		}
		task.IsCompleted = true
		task.CompletedAt = &now

		cascade, err := e.cascadeFrom(dbc, task)
		if err != nil {
			return err
		}
		res.Cascade = cascade
		day, err = e.days.GetByID(dbc, task.DayID)
		if err != nil {
			return err
		}
		if day == nil {
			return notFound("day", task.DayID)
		}
		return e.applyFrontier(dbc, day)
	})
	if err != nil {
		return nil, err
	}
	if res.Locked {
		e.log.Debug("completion refused for locked task", "project_id", projectID, "task_id", taskID)
		return res, nil
	}

	if !res.Cascade.AlreadyCompleted {
		e.publish(ctx, ProgressEvent{Type: EventTaskCompleted, ProjectID: projectID, DayNumber: intPtr(day.DayNumber), TaskID: uuidPtr(taskID)})
	}
	if res.Cascade.DayCompleted {
		e.publish(ctx, ProgressEvent{Type: EventDayCompleted, ProjectID: projectID, DayNumber: intPtr(day.DayNumber)})
	}
	if !day.IsCompleted {
		return res, nil
	}
	res.Unlock, res.Generation, err = e.afterDayCompleted(ctx, projectID, day.DayNumber)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// lockDay takes the project row lock and then the day row lock, in that
// order everywhere, so sibling counts read by the cascade cannot go stale
// under a concurrent completion.
func (e *Engine) lockDay(dbc dbctx.Context, projectID, dayID uuid.UUID) (*types.Day, error) {
	project, err := e.projects.LockByID(dbc, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, notFound("project", projectID)
	}
	day, err := e.days.LockByID(dbc, dayID)
	if err != nil {
		return nil, err
	}
	if day == nil || day.ProjectID != projectID {
		return nil, notFound("day", dayID)
	}
	return day, nil
}

// afterDayCompleted runs the unlock attempt and then the generation trigger
// for a completed day. Generation failures are logged, never returned: the
// completion itself already committed and the claim was released.
func (e *Engine) afterDayCompleted(ctx context.Context, projectID uuid.UUID, dayNumber int) (*UnlockResult, GenerationOutcome, error) {
	unlock, err := e.TryUnlockDay(ctx, projectID, dayNumber)
	if err != nil {
		return nil, GenerationNotApplicable, err
	}
	outcome, err := e.OnDayCompleted(ctx, projectID, dayNumber)
	if err != nil {
		e.log.Warn("next day generation trigger failed", "project_id", projectID, "day_number", dayNumber, "error", err)
		return unlock, GenerationNotApplicable, nil
	}
	return unlock, outcome, nil
}
