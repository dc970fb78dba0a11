package progression

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/data/repos/testutil"
	types "github.com/yungbote/gitguide-backend/internal/domain"
)

func TestComputeTreeMatchesChildCounts(t *testing.T) {
	project := &types.Project{ID: uuid.New(), TotalDayCount: types.TotalDayCount}
	day := &types.Day{ID: uuid.New(), ProjectID: project.ID, DayNumber: 1, IsUnlocked: true}
	concept := &types.Concept{ID: uuid.New(), DayID: day.ID, SortOrder: 1}
	subA := &types.Subconcept{ID: uuid.New(), ConceptID: concept.ID, DayID: day.ID, SortOrder: 1}
	subB := &types.Subconcept{ID: uuid.New(), ConceptID: concept.ID, DayID: day.ID, SortOrder: 2}
	task := func(sub *types.Subconcept, order int, done bool) *types.Task {
		return &types.Task{ID: uuid.New(), DayID: day.ID, SubconceptID: testutil.PtrUUID(sub.ID), SortOrder: order, IsCompleted: done}
	}
	tree := &projectTree{
		project:  project,
		days:     []*types.Day{day},
		concepts: []*types.Concept{concept},
		subs:     []*types.Subconcept{subA, subB},
		tasks:    []*types.Task{task(subA, 1, true), task(subA, 2, true), task(subB, 1, true), task(subB, 2, false)},
	}

	snap, diff := computeTree(tree)
	if !subA.IsCompleted || subB.IsCompleted {
		t.Fatalf("subconcept flags: a=%t b=%t", subA.IsCompleted, subB.IsCompleted)
	}
	assertRatio(t, "subB", subB.ProgressRatio, 0.5)
	assertRatio(t, "concept", concept.ProgressRatio, 0.5)
	assertRatio(t, "day", day.ProgressRatio, 0)
	if len(diff.subconcepts) != 2 || len(diff.concepts) != 1 {
		t.Fatalf("diff: %+v", diff)
	}
	if snap.TotalTasks != 4 || snap.CompletedTasks != 3 || snap.TasksRemaining != 1 {
		t.Fatalf("task counts: %+v", snap)
	}
	if snap.CurrentDay != 1 || snap.UnlockedDays != 1 {
		t.Fatalf("day counts: %+v", snap)
	}
	dp := snap.Days[0]
	if dp.TotalSubconcepts != 2 || dp.CompletedSubconcepts != 1 || len(dp.Concepts) != 1 || len(dp.Concepts[0].Subconcepts) != 2 {
		t.Fatalf("day progress: %+v", dp)
	}

	_, diff = computeTree(tree)
	if !diff.empty() {
		t.Fatalf("second pass should find nothing to fix: %+v", diff)
	}
}

func TestRecomputeAllAgreesWithCascade(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	tree := testutil.SeedDayContent(t, h.ctx, h.db, days[1], 3, 3, 3)
	h.unlock(t, project.ID, days[1])

	// Random interleaving across subconcepts, frontier order within each.
	rng := rand.New(rand.NewSource(11))
	next := map[uuid.UUID]int{}
	for done := 0; done < 17; {
		sub := tree.Subconcepts[rng.Intn(len(tree.Subconcepts))]
		queue := tree.TasksBySubconcept[sub.ID]
		if next[sub.ID] == len(queue) {
			continue
		}
		res, err := h.engine.CompleteTask(h.ctx, project.ID, queue[next[sub.ID]].ID)
		if err != nil {
			t.Fatalf("CompleteTask: %v", err)
		}
		if res.Locked {
			t.Fatalf("frontier task reported locked")
		}
		next[sub.ID]++
		done++
	}
	before := h.stateOf(t, project.ID)
	snap, err := h.engine.RecomputeAll(h.ctx, project.ID)
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if after := h.stateOf(t, project.ID); after != before {
		t.Fatalf("recompute disagreed with the incremental cascade:\n%s\n---\n%s", before, after)
	}
	if snap.CompletedTasks != 17 || snap.TotalTasks != 27 {
		t.Fatalf("snapshot counts: %+v", snap)
	}
	read, err := h.engine.Snapshot(h.ctx, project.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if read.CompletedTasks != snap.CompletedTasks || read.ProgressRatio != snap.ProgressRatio {
		t.Fatalf("Snapshot and RecomputeAll differ: %+v vs %+v", read, snap)
	}
}

func TestRecomputeAllRepairsDrift(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	tree := testutil.SeedDayContent(t, h.ctx, h.db, days[1], 1, 2, 2)
	h.unlock(t, project.ID, days[1])

	// Completion written without the cascade, as a crashed writer would.
	testutil.MarkTasksCompleted(t, h.ctx, h.db, tree.TasksBySubconcept[tree.Subconcepts[0].ID])

	snap, err := h.engine.RecomputeAll(h.ctx, project.ID)
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	sub := h.subconcept(t, tree.Subconcepts[0].ID)
	if !sub.IsCompleted {
		t.Fatalf("subconcept should be completed after repair")
	}
	assertRatio(t, "concept", h.concept(t, tree.Concepts[0].ID).ProgressRatio, 0.5)
	h.assertSingleFrontier(t, days[1].ID)
	if snap.Days[1].CompletedSubconcepts != 1 {
		t.Fatalf("snapshot day 1: %+v", snap.Days[1])
	}

	repaired := h.stateOf(t, project.ID)
	if _, err := h.engine.RecomputeAll(h.ctx, project.ID); err != nil {
		t.Fatalf("RecomputeAll again: %v", err)
	}
	if again := h.stateOf(t, project.ID); again != repaired {
		t.Fatalf("second recompute changed state")
	}
}

func TestSnapshotStreakAndPercentage(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	for _, n := range []int{0, 1, 3} {
		if err := h.db.Model(&types.Day{}).Where("id = ?", days[n].ID).Updates(map[string]interface{}{"is_completed": true, "is_unlocked": true}).Error; err != nil {
			t.Fatalf("mark day %d: %v", n, err)
		}
	}
	snap, err := h.engine.Snapshot(h.ctx, project.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Streak != 2 || snap.CompletedDays != 3 || snap.TotalDays != 15 {
		t.Fatalf("snapshot: streak=%d completed=%d total=%d", snap.Streak, snap.CompletedDays, snap.TotalDays)
	}
	if snap.ProgressPercentage != 20 {
		t.Fatalf("percentage: %v", snap.ProgressPercentage)
	}
	if snap.CurrentDay != 3 {
		t.Fatalf("current day: %d", snap.CurrentDay)
	}

	if _, err := h.engine.Snapshot(h.ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown project: %v", err)
	}
}

func TestDayStatus(t *testing.T) {
	h := newHarness(t)
	project := h.initProject(t)

	report, err := h.engine.DayStatus(h.ctx, project.ID, 0)
	if err != nil {
		t.Fatalf("DayStatus: %v", err)
	}
	if report.Day.Name != "Day 0: Setup Your Practice Repository" || len(report.Tasks) != 3 {
		t.Fatalf("day 0 report: %+v", report.Day)
	}
	if report.Gate.Kind != GateVerification || report.Gate.Total != 3 || report.Day.UnlockedTasks != 1 {
		t.Fatalf("day 0 gate: %+v unlocked=%d", report.Gate, report.Day.UnlockedTasks)
	}
	if _, err := h.engine.DayStatus(h.ctx, project.ID, 15); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("out of range: %v", err)
	}
}
