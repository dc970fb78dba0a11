package progression

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/yungbote/gitguide-backend/internal/data/repos/testutil"
	types "github.com/yungbote/gitguide-backend/internal/domain"
)

func TestApplyGeneratedContent(t *testing.T) {
	h := newHarness(t)
	project, _ := h.seed(t)
	if _, err := h.engine.EnsureGenerated(h.ctx, project.ID, 1); err != nil {
		t.Fatalf("EnsureGenerated: %v", err)
	}

	res, err := h.engine.ApplyGeneratedContent(h.ctx, project.ID, 1, sampleContent(2, 3, 4))
	if err != nil {
		t.Fatalf("ApplyGeneratedContent: %v", err)
	}
	if !res.Applied || res.Concepts != 2 || res.Subconcepts != 6 || res.Tasks != 24 {
		t.Fatalf("unexpected result: %+v", res)
	}
	day := h.day(t, project.ID, 1)
	if !day.ContentGenerated || day.GenerationStarted || day.Description != "generated" {
		t.Fatalf("day flags after apply: %+v", day)
	}
	var tasks []*types.Task
	if err := h.db.Where("day_id = ?", day.ID).Find(&tasks).Error; err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if len(tasks) != 24 {
		t.Fatalf("stored %d tasks", len(tasks))
	}
	for _, task := range tasks {
		if task.IsUnlocked {
			t.Fatalf("tasks of a locked day must stay locked")
		}
	}
	var files []string
	if err := json.Unmarshal(tasks[0].FilesToStudy, &files); err != nil || len(files) != 1 || files[0] != "README.md" {
		t.Fatalf("files_to_study: %s (%v)", tasks[0].FilesToStudy, err)
	}

	again, err := h.engine.ApplyGeneratedContent(h.ctx, project.ID, 1, sampleContent(1, 1, 1))
	if err != nil {
		t.Fatalf("redelivered content: %v", err)
	}
	if again.Applied || !again.AlreadyGenerated {
		t.Fatalf("redelivery should be ignored: %+v", again)
	}
	var count int64
	if err := h.db.Model(&types.Task{}).Where("day_id = ?", day.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 24 {
		t.Fatalf("redelivery changed rows: %d", count)
	}
	if h.events.Count(EventContentGenerated) != 1 {
		t.Fatalf("content_generated events: %d", h.events.Count(EventContentGenerated))
	}
}

func TestApplyGeneratedContentIntoUnlockedDay(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	if err := h.db.Model(&types.Day{}).Where("id = ?", days[2].ID).Updates(map[string]interface{}{"is_unlocked": true}).Error; err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := h.engine.ApplyGeneratedContent(h.ctx, project.ID, 2, sampleContent(2, 2, 3)); err != nil {
		t.Fatalf("ApplyGeneratedContent: %v", err)
	}
	h.assertDayOpen(t, project.ID, 2)
}

func TestApplyGeneratedContentValidation(t *testing.T) {
	h := newHarness(t)
	project, _ := h.seed(t)

	bad := []DayContent{
		{},
		{Concepts: []ConceptContent{{Title: "No subconcepts"}}},
		{Concepts: []ConceptContent{{Title: "c", Subconcepts: []SubconceptContent{{Title: "No tasks"}}}}},
		{Concepts: []ConceptContent{{Title: "c", Subconcepts: []SubconceptContent{{Title: "s", Tasks: []TaskContent{{Title: " "}}}}}}},
		{Concepts: []ConceptContent{{Title: "", Subconcepts: []SubconceptContent{{Title: "s", Tasks: []TaskContent{{Title: "t"}}}}}}},
	}
	for i, content := range bad {
		if _, err := h.engine.ApplyGeneratedContent(h.ctx, project.ID, 3, content); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: got %v", i, err)
		}
	}
	if _, err := h.engine.ApplyGeneratedContent(h.ctx, project.ID, 0, sampleContent(1, 1, 1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("day 0: got %v", err)
	}
	if h.day(t, project.ID, 3).ContentGenerated {
		t.Fatalf("invalid content must not mark the day generated")
	}
}

func TestRegenerateDay(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	tree := testutil.SeedDayContent(t, h.ctx, h.db, days[4], 1, 1, 2)
	h.unlock(t, project.ID, days[4])

	if _, err := h.engine.CompleteTask(h.ctx, project.ID, tree.Tasks[0].ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	outcome, err := h.engine.RegenerateDay(h.ctx, project.ID, 4)
	if err != nil {
		t.Fatalf("RegenerateDay: %v", err)
	}
	if outcome != GenerationTriggered {
		t.Fatalf("outcome: %q", outcome)
	}
	var count int64
	if err := h.db.Model(&types.Task{}).Where("day_id = ?", days[4].ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("old tasks survived regeneration: %d", count)
	}
	day := h.day(t, project.ID, 4)
	if day.ContentGenerated || !day.GenerationStarted || day.ProgressRatio != 0 {
		t.Fatalf("day flags after regenerate: %+v", day)
	}

	again, err := h.engine.RegenerateDay(h.ctx, project.ID, 4)
	if err != nil || again != GenerationInFlight {
		t.Fatalf("regenerate while in flight: %q %v", again, err)
	}
}

func TestRegenerateRefusesCompletedWork(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	tree := testutil.SeedDayContent(t, h.ctx, h.db, days[5], 1, 2, 1)
	testutil.SeedDayContent(t, h.ctx, h.db, days[6], 1, 1, 1)
	h.unlock(t, project.ID, days[5])

	if _, err := h.engine.CompleteTask(h.ctx, project.ID, tree.Tasks[0].ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	completedSub := tree.Subconcepts[0]
	if _, err := h.engine.ReplaceSubconceptTasks(h.ctx, project.ID, completedSub.ID, []TaskContent{{Title: "x"}}); !errors.Is(err, ErrConflict) {
		t.Fatalf("completed subconcept: got %v", err)
	}

	if _, err := h.engine.CompleteTask(h.ctx, project.ID, tree.Tasks[1].ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if _, err := h.engine.RegenerateDay(h.ctx, project.ID, 5); !errors.Is(err, ErrConflict) {
		t.Fatalf("completed day: got %v", err)
	}
	if _, err := h.engine.ReplaceConceptContent(h.ctx, project.ID, tree.Concepts[0].ID, sampleContent(1, 1, 1).Concepts[0]); !errors.Is(err, ErrConflict) {
		t.Fatalf("completed concept: got %v", err)
	}
	if _, err := h.engine.RegenerateDay(h.ctx, project.ID, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("day 0: got %v", err)
	}
}

func TestReplaceSubconceptTasksRecomputes(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)
	tree := testutil.SeedDayContent(t, h.ctx, h.db, days[1], 1, 2, 2)
	h.unlock(t, project.ID, days[1])

	first, second := tree.Subconcepts[0], tree.Subconcepts[1]
	for _, task := range tree.TasksBySubconcept[first.ID] {
		if _, err := h.engine.CompleteTask(h.ctx, project.ID, task.ID); err != nil {
			t.Fatalf("CompleteTask: %v", err)
		}
	}
	assertRatio(t, "concept before", h.concept(t, tree.Concepts[0].ID).ProgressRatio, 0.5)

	res, err := h.engine.ReplaceSubconceptTasks(h.ctx, project.ID, second.ID, []TaskContent{{Title: "a"}, {Title: "b"}, {Title: "c"}})
	if err != nil {
		t.Fatalf("ReplaceSubconceptTasks: %v", err)
	}
	if res.Tasks != 3 || res.DayNumber != 1 {
		t.Fatalf("result: %+v", res)
	}
	assertRatio(t, "concept after", h.concept(t, tree.Concepts[0].ID).ProgressRatio, 0.5)
	h.assertSingleFrontier(t, days[1].ID)

	replaced, err := h.engine.ReplaceConceptContent(h.ctx, project.ID, tree.Concepts[0].ID, sampleContent(1, 3, 1).Concepts[0])
	if err != nil {
		t.Fatalf("ReplaceConceptContent: %v", err)
	}
	if replaced.Subconcepts != 3 || replaced.Tasks != 3 {
		t.Fatalf("replace concept result: %+v", replaced)
	}
	assertRatio(t, "concept reset", h.concept(t, tree.Concepts[0].ID).ProgressRatio, 0)
	h.assertSingleFrontier(t, days[1].ID)
}
