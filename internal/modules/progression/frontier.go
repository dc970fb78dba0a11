package progression

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

// frontierTaskIDs derives the set of tasks that should be unlocked in one
// day from order and completion alone.
//
// Subconcept tasks: the lowest-order task that is not done, one per
// subconcept. A fully done subconcept keeps nothing unlocked.
//
// Concept-owned tasks (Day 0) form one chain across concepts. Every task up
// to and including the first task that is not done stays unlocked, so
// verified steps remain visible. next is that first pending chain task.
func frontierTaskIDs(concepts []*types.Concept, tasks []*types.Task) (unlock []uuid.UUID, next *uuid.UUID) {
	bySub := map[uuid.UUID][]*types.Task{}
	var subOrder []uuid.UUID
	byConcept := map[uuid.UUID][]*types.Task{}
	for _, t := range tasks {
		switch {
		case t.SubconceptID != nil:
			sid := *t.SubconceptID
			if _, seen := bySub[sid]; !seen {
				subOrder = append(subOrder, sid)
			}
			bySub[sid] = append(bySub[sid], t)
		case t.ConceptID != nil:
			byConcept[*t.ConceptID] = append(byConcept[*t.ConceptID], t)
		}
	}

	unlock = []uuid.UUID{}
	for _, sid := range subOrder {
		for _, t := range bySub[sid] {
			if !t.Done() {
				unlock = append(unlock, t.ID)
				break
			}
		}
	}

chain:
	for _, c := range concepts {
		for _, t := range byConcept[c.ID] {
			unlock = append(unlock, t.ID)
			if !t.Done() {
				id := t.ID
				next = &id
				break chain
			}
		}
	}
	return unlock, next
}

// applyFrontier re-derives and persists the task frontier of an unlocked
// day. It is a full reset on every call, which is what advances the
// frontier after each completion.
func (e *Engine) applyFrontier(dbc dbctx.Context, day *types.Day) error {
	_, err := e.applyFrontierNext(dbc, day)
	return err
}

func (e *Engine) applyFrontierNext(dbc dbctx.Context, day *types.Day) (*uuid.UUID, error) {
	if day == nil || !day.IsUnlocked {
		return nil, nil
	}
	concepts, err := e.concepts.ListByDayID(dbc, day.ID)
	if err != nil {
		return nil, err
	}
	tasks, err := e.tasks.ListByDayID(dbc, day.ID)
	if err != nil {
		return nil, err
	}
	unlock, next := frontierTaskIDs(concepts, tasks)
	if err := e.tasks.ApplyFrontier(dbc, day.ID, unlock); err != nil {
		return nil, err
	}
	return next, nil
}

// gateFor evaluates whether day lets its successor unlock. Day 0 counts
// verified tasks only; every other day counts completed tasks.
func gateFor(day *types.Day, tasks []*types.Task) GateStatus {
	g := GateStatus{DayNumber: day.DayNumber, Kind: GateCompletion}
	if day.IsVerificationDay() {
		g.Kind = GateVerification
		for _, t := range tasks {
			if !t.RequiresVerification() {
				continue
			}
			g.Total++
			if t.IsVerified {
				g.Done++
			}
		}
	} else {
		g.Total = len(tasks)
		for _, t := range tasks {
			if t.IsCompleted {
				g.Done++
			}
		}
	}
	g.Satisfied = g.Total > 0 && g.Done == g.Total
	return g
}

// Gate reports the current gate of one day without changing anything.
func (e *Engine) Gate(ctx context.Context, projectID uuid.UUID, dayNumber int) (GateStatus, error) {
	if err := validDayNumber(dayNumber); err != nil {
		return GateStatus{}, err
	}
	dbc := dbctx.New(ctx)
	day, err := e.dayFor(dbc, projectID, dayNumber)
	if err != nil {
		return GateStatus{}, classifyStoreError("Gate", err)
	}
	tasks, err := e.tasks.ListByDayID(dbc, day.ID)
	if err != nil {
		return GateStatus{}, classifyStoreError("Gate", err)
	}
	return gateFor(day, tasks), nil
}

// TryUnlockDay unlocks dayNumber+1 when dayNumber's gate is satisfied. An
// unsatisfied gate is reported in the result with no changes made, so the
// call is safe to make speculatively. Every write is guarded by the old
// value, so repeating the call leaves the same persisted state.
func (e *Engine) TryUnlockDay(ctx context.Context, projectID uuid.UUID, dayNumber int) (res *UnlockResult, err error) {
	ctx, span := e.startSpan(ctx, "TryUnlockDay", projectID, attribute.Int("day_number", dayNumber))
	defer func() { finishSpan(span, err) }()

	if err := validDayNumber(dayNumber); err != nil {
		return nil, err
	}
	res = &UnlockResult{TargetDay: dayNumber + 1}
	if dayNumber == types.LastDayNumber {
		res.TargetDay = dayNumber
		res.Terminal = true
		return res, nil
	}

	err = e.inTx(ctx, "TryUnlockDay", func(dbc dbctx.Context) error {
		day, err := e.dayFor(dbc, projectID, dayNumber)
		if err != nil {
			return err
		}
		if day, err = e.lockDay(dbc, projectID, day.ID); err != nil {
			return err
		}
		tasks, err := e.tasks.ListByDayID(dbc, day.ID)
		if err != nil {
			return err
		}
		res.Gate = gateFor(day, tasks)
		if !day.IsUnlocked {
			res.DayLocked = true
			res.Gate.Satisfied = false
			return nil
		}
		if !res.Gate.Satisfied {
			return nil
		}

		target, err := e.dayFor(dbc, projectID, dayNumber+1)
		if err != nil {
			return err
		}
		changed, err := e.days.Unlock(dbc, target.ID)
		if err != nil {
			return err
		}
		res.Unlocked = changed
		res.AlreadyUnlocked = !changed
		target.IsUnlocked = true

		if err := e.concepts.UnlockByDayID(dbc, target.ID); err != nil {
			return err
		}
		if err := e.subconcepts.UnlockByDayID(dbc, target.ID); err != nil {
			return err
		}
		if err := e.applyFrontier(dbc, target); err != nil {
			return err
		}
		return e.projects.AdvanceCurrentDay(dbc, projectID, target.DayNumber)
	})
	if err != nil {
		return nil, err
	}
	if res.Unlocked {
		e.log.Info("day unlocked", "project_id", projectID, "day_number", res.TargetDay)
		e.publish(ctx, ProgressEvent{Type: EventDayUnlocked, ProjectID: projectID, DayNumber: intPtr(res.TargetDay)})
	}
	return res, nil
}

// Open reports whether the target day is unlocked after the call.
func (r *UnlockResult) Open() bool {
	return r != nil && (r.Unlocked || r.AlreadyUnlocked)
}
