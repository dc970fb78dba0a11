package progression

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

type projectTree struct {
	project  *types.Project
	days     []*types.Day
	concepts []*types.Concept
	subs     []*types.Subconcept
	tasks    []*types.Task
}

func (e *Engine) loadTree(dbc dbctx.Context, projectID uuid.UUID) (*projectTree, error) {
	project, err := e.projects.GetByID(dbc, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, notFound("project", projectID)
	}
	t := &projectTree{project: project}
	if t.days, err = e.days.ListByProjectID(dbc, projectID); err != nil {
		return nil, err
	}
	if t.concepts, err = e.concepts.ListByProjectID(dbc, projectID); err != nil {
		return nil, err
	}
	if t.subs, err = e.subconcepts.ListByProjectID(dbc, projectID); err != nil {
		return nil, err
	}
	if t.tasks, err = e.tasks.ListByProjectID(dbc, projectID); err != nil {
		return nil, err
	}
	return t, nil
}

// treeDiff holds the column updates that bring stored state in line with
// a full recomputation.
type treeDiff struct {
	subconcepts map[uuid.UUID]map[string]interface{}
	concepts    map[uuid.UUID]map[string]interface{}
	days        map[uuid.UUID]map[string]interface{}
	project     map[string]interface{}
}

// computeTree recomputes every level bottom-up from child counts alone, the
// same way the incremental cascade does, mutating the loaded rows in memory.
// It never clears a completion flag.
func computeTree(t *projectTree) (*ProgressSnapshot, *treeDiff) {
	diff := &treeDiff{
		subconcepts: map[uuid.UUID]map[string]interface{}{},
		concepts:    map[uuid.UUID]map[string]interface{}{},
		days:        map[uuid.UUID]map[string]interface{}{},
		project:     map[string]interface{}{},
	}

	tasksBySub := map[uuid.UUID][]*types.Task{}
	tasksByConcept := map[uuid.UUID][]*types.Task{}
	tasksByDay := map[uuid.UUID][]*types.Task{}
	for _, task := range t.tasks {
		tasksByDay[task.DayID] = append(tasksByDay[task.DayID], task)
		switch {
		case task.SubconceptID != nil:
			tasksBySub[*task.SubconceptID] = append(tasksBySub[*task.SubconceptID], task)
		case task.ConceptID != nil:
			tasksByConcept[*task.ConceptID] = append(tasksByConcept[*task.ConceptID], task)
		}
	}
	subsByConcept := map[uuid.UUID][]*types.Subconcept{}
	for _, s := range t.subs {
		subsByConcept[s.ConceptID] = append(subsByConcept[s.ConceptID], s)
	}
	conceptsByDay := map[uuid.UUID][]*types.Concept{}
	for _, c := range t.concepts {
		conceptsByDay[c.DayID] = append(conceptsByDay[c.DayID], c)
	}

	snap := &ProgressSnapshot{
		ProjectID: t.project.ID,
		TotalDays: t.project.TotalDayCount,
		Days:      make([]DayProgress, 0, len(t.days)),
	}
	if snap.TotalDays <= 0 {
		snap.TotalDays = types.TotalDayCount
	}

	for _, day := range t.days {
		dp := DayProgress{
			DayID:                day.ID,
			DayNumber:            day.DayNumber,
			Name:                 day.Name,
			RequiresVerification: day.IsVerificationDay(),
		}
		conceptsDone := 0
		for _, c := range conceptsByDay[day.ID] {
			cp := ConceptProgress{ConceptID: c.ID, Title: c.Title, Order: c.SortOrder}
			subs := subsByConcept[c.ID]
			var done, total int
			if len(subs) > 0 {
				total = len(subs)
				for _, s := range subs {
					tasks := tasksBySub[s.ID]
					if updates, _ := settle(&s.IsCompleted, &s.ProgressRatio, countDone(tasks), len(tasks)); updates != nil {
						diff.subconcepts[s.ID] = updates
					}
					if s.IsCompleted {
						done++
						dp.CompletedSubconcepts++
					}
					dp.TotalSubconcepts++
					cp.Subconcepts = append(cp.Subconcepts, SubconceptProgress{
						SubconceptID:   s.ID,
						Title:          s.Title,
						Order:          s.SortOrder,
						IsUnlocked:     s.IsUnlocked,
						IsCompleted:    s.IsCompleted,
						ProgressRatio:  s.ProgressRatio,
						TotalTasks:     len(tasks),
						CompletedTasks: countDone(tasks),
					})
				}
			} else {
				tasks := tasksByConcept[c.ID]
				done, total = countDone(tasks), len(tasks)
			}
			if updates, _ := settle(&c.IsCompleted, &c.ProgressRatio, done, total); updates != nil {
				diff.concepts[c.ID] = updates
			}
			if c.IsCompleted {
				conceptsDone++
				dp.CompletedConcepts++
			}
			dp.TotalConcepts++
			cp.IsUnlocked = c.IsUnlocked
			cp.IsCompleted = c.IsCompleted
			cp.ProgressRatio = c.ProgressRatio
			dp.Concepts = append(dp.Concepts, cp)
		}

		updates, _ := settle(&day.IsCompleted, &day.ProgressRatio, conceptsDone, len(conceptsByDay[day.ID]))
		if day.IsCompleted && day.IsVerificationDay() && !day.IsVerified {
			if updates == nil {
				updates = map[string]interface{}{}
			}
			updates["is_verified"] = true
			day.IsVerified = true
		}
		if updates != nil {
			diff.days[day.ID] = updates
		}

		for _, task := range tasksByDay[day.ID] {
			dp.TotalTasks++
			if task.Done() {
				dp.CompletedTasks++
			}
			if task.IsVerified {
				dp.VerifiedTasks++
			}
			if task.IsUnlocked {
				dp.UnlockedTasks++
			}
		}
		dp.IsUnlocked = day.IsUnlocked
		dp.IsCompleted = day.IsCompleted
		dp.IsVerified = day.IsVerified
		dp.ContentGenerated = day.ContentGenerated
		dp.GenerationStarted = day.GenerationStarted
		dp.ProgressRatio = day.ProgressRatio

		snap.TotalTasks += dp.TotalTasks
		snap.CompletedTasks += dp.CompletedTasks
		if day.IsCompleted {
			snap.CompletedDays++
		}
		if day.IsUnlocked {
			snap.UnlockedDays++
			if day.DayNumber > snap.CurrentDay {
				snap.CurrentDay = day.DayNumber
			}
		}
		snap.Days = append(snap.Days, dp)
	}

	for _, dp := range snap.Days {
		if !dp.IsCompleted || dp.DayNumber != snap.Streak {
			break
		}
		snap.Streak++
	}
	snap.TasksRemaining = snap.TotalTasks - snap.CompletedTasks
	snap.ProgressRatio = math.Min(1, float64(snap.CompletedDays)/float64(snap.TotalDays))
	snap.ProgressPercentage = math.Round(snap.ProgressRatio*1000) / 10

	if snap.CompletedDays != t.project.CompletedDayCount {
		diff.project["completed_day_count"] = snap.CompletedDays
	}
	if snap.ProgressRatio != t.project.ProgressRatio {
		diff.project["progress_ratio"] = snap.ProgressRatio
	}
	return snap, diff
}

func (d *treeDiff) empty() bool {
	return len(d.subconcepts) == 0 && len(d.concepts) == 0 && len(d.days) == 0 && len(d.project) == 0
}

// RecomputeAll rebuilds every ratio and completion flag of a project from
// child counts, persists whatever drifted, re-derives the frontier of every
// unlocked day and returns the resulting snapshot. Running it on a
// consistent project changes nothing.
func (e *Engine) RecomputeAll(ctx context.Context, projectID uuid.UUID) (snap *ProgressSnapshot, err error) {
	ctx, span := e.startSpan(ctx, "RecomputeAll", projectID)
	defer func() { finishSpan(span, err) }()

	var drifted bool
	err = e.inTx(ctx, "RecomputeAll", func(dbc dbctx.Context) error {
		tree, err := e.loadTree(dbc, projectID)
		if err != nil {
			return err
		}
		if err := e.healUnlocks(dbc, tree); err != nil {
			return err
		}
		var diff *treeDiff
		snap, diff = computeTree(tree)
		drifted = !diff.empty()
		for id, updates := range diff.subconcepts {
			if err := e.subconcepts.UpdateFields(dbc, id, updates); err != nil {
				return err
			}
		}
		for id, updates := range diff.concepts {
			if err := e.concepts.UpdateFields(dbc, id, updates); err != nil {
				return err
			}
		}
		for id, updates := range diff.days {
			if err := e.days.UpdateFields(dbc, id, updates); err != nil {
				return err
			}
		}
		if err := e.projects.UpdateFields(dbc, projectID, diff.project); err != nil {
			return err
		}
		if snap.CurrentDay > tree.project.CurrentDay {
			return e.projects.AdvanceCurrentDay(dbc, projectID, snap.CurrentDay)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("drifted", drifted))
	if drifted {
		e.log.Warn("progress drift repaired", "project_id", projectID)
	}
	return snap, nil
}

// healUnlocks re-applies the downward unlock and the task frontier for every
// unlocked day, keeping the in-memory rows in step with what it writes.
func (e *Engine) healUnlocks(dbc dbctx.Context, tree *projectTree) error {
	conceptsByDay := map[uuid.UUID][]*types.Concept{}
	for _, c := range tree.concepts {
		conceptsByDay[c.DayID] = append(conceptsByDay[c.DayID], c)
	}
	tasksByDay := map[uuid.UUID][]*types.Task{}
	for _, t := range tree.tasks {
		tasksByDay[t.DayID] = append(tasksByDay[t.DayID], t)
	}
	for _, day := range tree.days {
		if !day.IsUnlocked {
			continue
		}
		if err := e.concepts.UnlockByDayID(dbc, day.ID); err != nil {
			return err
		}
		if err := e.subconcepts.UnlockByDayID(dbc, day.ID); err != nil {
			return err
		}
		unlock, _ := frontierTaskIDs(conceptsByDay[day.ID], tasksByDay[day.ID])
		if err := e.tasks.ApplyFrontier(dbc, day.ID, unlock); err != nil {
			return err
		}
		open := make(map[uuid.UUID]bool, len(unlock))
		for _, id := range unlock {
			open[id] = true
		}
		for _, t := range tasksByDay[day.ID] {
			t.IsUnlocked = open[t.ID]
		}
	}
	unlockedDays := map[uuid.UUID]bool{}
	for _, d := range tree.days {
		unlockedDays[d.ID] = d.IsUnlocked
	}
	for _, c := range tree.concepts {
		if unlockedDays[c.DayID] {
			c.IsUnlocked = true
		}
	}
	for _, s := range tree.subs {
		if unlockedDays[s.DayID] {
			s.IsUnlocked = true
		}
	}
	return nil
}

// Snapshot reports progress without writing anything.
func (e *Engine) Snapshot(ctx context.Context, projectID uuid.UUID) (*ProgressSnapshot, error) {
	tree, err := e.loadTree(dbctx.New(ctx), projectID)
	if err != nil {
		return nil, classifyStoreError("Snapshot", err)
	}
	snap, _ := computeTree(tree)
	return snap, nil
}

// DayReport is one day's progress, its gate and its tasks in order.
type DayReport struct {
	Day   DayProgress   `json:"day"`
	Gate  GateStatus    `json:"gate"`
	Tasks []*types.Task `json:"tasks"`
}

func (e *Engine) DayStatus(ctx context.Context, projectID uuid.UUID, dayNumber int) (*DayReport, error) {
	if err := validDayNumber(dayNumber); err != nil {
		return nil, err
	}
	tree, err := e.loadTree(dbctx.New(ctx), projectID)
	if err != nil {
		return nil, classifyStoreError("DayStatus", err)
	}
	var day *types.Day
	for _, d := range tree.days {
		if d.DayNumber == dayNumber {
			day = d
			break
		}
	}
	if day == nil {
		return nil, notFound("day", dayNumber)
	}
	tasks := make([]*types.Task, 0)
	for _, t := range tree.tasks {
		if t.DayID == day.ID {
			tasks = append(tasks, t)
		}
	}
	snap, _ := computeTree(tree)
	report := &DayReport{Gate: gateFor(day, tasks), Tasks: tasks}
	for _, dp := range snap.Days {
		if dp.DayNumber == dayNumber {
			report.Day = dp
			break
		}
	}
	return report, nil
}
