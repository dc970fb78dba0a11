package progression

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/data/repos/testutil"
	types "github.com/yungbote/gitguide-backend/internal/domain"
)

func TestFrontierTaskIDs(t *testing.T) {
	subA, subB := uuid.New(), uuid.New()
	mk := func(sub uuid.UUID, order int, completed bool) *types.Task {
		return &types.Task{ID: uuid.New(), SubconceptID: testutil.PtrUUID(sub), SortOrder: order, IsCompleted: completed}
	}
	a1, a2, a3 := mk(subA, 1, true), mk(subA, 2, false), mk(subA, 3, false)
	b1, b2 := mk(subB, 1, true), mk(subB, 2, true)

	unlock, next := frontierTaskIDs(nil, []*types.Task{a1, a2, a3, b1, b2})
	if len(unlock) != 1 || unlock[0] != a2.ID {
		t.Fatalf("unlock: got %v want [%s]", unlock, a2.ID)
	}
	if next != nil {
		t.Fatalf("regular days have no chain, got next=%s", *next)
	}

	c1, c2, c3 := &types.Concept{ID: uuid.New(), SortOrder: 1}, &types.Concept{ID: uuid.New(), SortOrder: 2}, &types.Concept{ID: uuid.New(), SortOrder: 3}
	setup := func(concept *types.Concept, kind types.VerificationKind, verified bool) *types.Task {
		return &types.Task{ID: uuid.New(), ConceptID: testutil.PtrUUID(concept.ID), SortOrder: 1, VerificationKind: kind.Ptr(), IsVerified: verified, IsCompleted: true}
	}
	p := setup(c1, types.VerificationProfile, true)
	r := setup(c2, types.VerificationRepository, false)
	c := setup(c3, types.VerificationCommit, false)

	unlock, next = frontierTaskIDs([]*types.Concept{c1, c2, c3}, []*types.Task{c, r, p})
	if len(unlock) != 2 || unlock[0] != p.ID || unlock[1] != r.ID {
		t.Fatalf("day 0 chain: got %v", unlock)
	}
	if next == nil || *next != r.ID {
		t.Fatalf("next: got %v want %s", next, r.ID)
	}
}

func TestTryUnlockDayRefusesIncompleteDay(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	day5 := testutil.SeedDayContent(t, h.ctx, h.db, days[5], 10, 10, 1)
	day6 := testutil.SeedDayContent(t, h.ctx, h.db, days[6], 2, 2, 2)
	h.unlock(t, project.ID, days[5])
	testutil.MarkTasksCompleted(t, h.ctx, h.db, day5.Tasks[:90])
	before := h.stateOf(t, project.ID)

	res, err := h.engine.TryUnlockDay(h.ctx, project.ID, 5)
	if err != nil {
		t.Fatalf("TryUnlockDay: %v", err)
	}
	if res.Open() || res.Gate.Satisfied {
		t.Fatalf("day 6 must stay locked: %+v", res)
	}
	if res.Gate.Kind != GateCompletion || res.Gate.Done != 90 || res.Gate.Total != 100 {
		t.Fatalf("gate: %+v", res.Gate)
	}
	if got := res.Gate.Message(); got != "90 of 100 tasks completed" {
		t.Fatalf("gate message: %q", got)
	}
	if after := h.stateOf(t, project.ID); after != before {
		t.Fatalf("refused unlock changed state")
	}
	if h.day(t, project.ID, 6).IsUnlocked || h.task(t, day6.Tasks[0].ID).IsUnlocked {
		t.Fatalf("day 6 touched")
	}
	if h.events.Count(EventDayUnlocked) != 0 {
		t.Fatalf("no unlock event expected")
	}
}

func TestTryUnlockDayIsIdempotent(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	day3 := testutil.SeedDayContent(t, h.ctx, h.db, days[3], 2, 2, 1)
	testutil.SeedDayContent(t, h.ctx, h.db, days[4], 2, 3, 3)
	h.unlock(t, project.ID, days[3])
	testutil.MarkTasksCompleted(t, h.ctx, h.db, day3.Tasks)

	first, err := h.engine.TryUnlockDay(h.ctx, project.ID, 3)
	if err != nil {
		t.Fatalf("TryUnlockDay: %v", err)
	}
	if !first.Unlocked {
		t.Fatalf("expected first call to unlock: %+v", first)
	}
	afterFirst := h.stateOf(t, project.ID)

	second, err := h.engine.TryUnlockDay(h.ctx, project.ID, 3)
	if err != nil {
		t.Fatalf("TryUnlockDay again: %v", err)
	}
	if second.Unlocked || !second.AlreadyUnlocked {
		t.Fatalf("second call should be a no-op: %+v", second)
	}
	if afterSecond := h.stateOf(t, project.ID); afterSecond != afterFirst {
		t.Fatalf("state differs after second call:\n%s\n---\n%s", afterFirst, afterSecond)
	}
	h.assertDayOpen(t, project.ID, 4)
	if got := h.events.Count(EventDayUnlocked); got != 1 {
		t.Fatalf("day_unlocked events: got %d", got)
	}
}

func TestTryUnlockDayBounds(t *testing.T) {
	h := newHarness(t)
	project, _ := h.seed(t)

	res, err := h.engine.TryUnlockDay(h.ctx, project.ID, types.LastDayNumber)
	if err != nil {
		t.Fatalf("TryUnlockDay(14): %v", err)
	}
	if !res.Terminal || res.Open() {
		t.Fatalf("last day should be terminal: %+v", res)
	}
	for _, n := range []int{-1, 15} {
		if _, err := h.engine.TryUnlockDay(h.ctx, project.ID, n); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("day %d: got %v", n, err)
		}
	}
	if _, err := h.engine.TryUnlockDay(h.ctx, uuid.New(), 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown project: got %v", err)
	}
}

func TestFrontierAdvancesWithCompletion(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	tree := testutil.SeedDayContent(t, h.ctx, h.db, days[1], 1, 2, 3)
	h.unlock(t, project.ID, days[1])
	h.assertSingleFrontier(t, days[1].ID)

	sub := tree.Subconcepts[0]
	tasks := tree.TasksBySubconcept[sub.ID]
	for i, task := range tasks {
		if !h.task(t, task.ID).IsUnlocked {
			t.Fatalf("task %d should be the frontier", i+1)
		}
		if _, err := h.engine.CompleteTask(h.ctx, project.ID, task.ID); err != nil {
			t.Fatalf("CompleteTask: %v", err)
		}
		h.assertSingleFrontier(t, days[1].ID)
	}
	for _, task := range tasks {
		if h.task(t, task.ID).IsUnlocked {
			t.Fatalf("completed subconcept should keep nothing unlocked")
		}
	}
}
