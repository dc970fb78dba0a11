package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/gitguide-backend/internal/domain"
)

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		RepoURL: "https://github.com/octocat/hello-world",
		Name:    "hello-world",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

// SeedDays creates Day 0 through Day 14 with only Day 0 unlocked and
// every regular day still waiting for content.
func SeedDays(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID) []*types.Day {
	tb.Helper()
	days := make([]*types.Day, 0, types.TotalDayCount)
	for n := types.FirstDayNumber; n <= types.LastDayNumber; n++ {
		days = append(days, &types.Day{
			ID:                   uuid.New(),
			ProjectID:            projectID,
			DayNumber:            n,
			Name:                 fmt.Sprintf("Day %d", n),
			IsUnlocked:           n == types.FirstDayNumber,
			RequiresVerification: n == types.FirstDayNumber,
			ContentGenerated:     n == types.FirstDayNumber,
		})
	}
	if err := tx.WithContext(ctx).Create(&days).Error; err != nil {
		tb.Fatalf("seed days: %v", err)
	}
	return days
}

// DayTree is the content seeded under one regular day.
type DayTree struct {
	Day         *types.Day
	Concepts    []*types.Concept
	Subconcepts []*types.Subconcept
	Tasks       []*types.Task
	// TasksBySubconcept preserves task order within each subconcept.
	TasksBySubconcept map[uuid.UUID][]*types.Task
}

// SeedDayContent fills a regular day with concepts x subconcepts x tasks and
// marks content_generated. Nothing is unlocked.
func SeedDayContent(tb testing.TB, ctx context.Context, tx *gorm.DB, day *types.Day, concepts, subsPerConcept, tasksPerSub int) *DayTree {
	tb.Helper()
	tree := &DayTree{Day: day, TasksBySubconcept: map[uuid.UUID][]*types.Task{}}
	for c := 0; c < concepts; c++ {
		concept := &types.Concept{
			ID:        uuid.New(),
			ProjectID: day.ProjectID,
			DayID:     day.ID,
			SortOrder: c + 1,
			Title:     fmt.Sprintf("Concept %d.%d", day.DayNumber, c+1),
		}
		if err := tx.WithContext(ctx).Create(concept).Error; err != nil {
			tb.Fatalf("seed concept: %v", err)
		}
		tree.Concepts = append(tree.Concepts, concept)
		for s := 0; s < subsPerConcept; s++ {
			sub := &types.Subconcept{
				ID:        uuid.New(),
				ProjectID: day.ProjectID,
				DayID:     day.ID,
				ConceptID: concept.ID,
				SortOrder: s + 1,
				Title:     fmt.Sprintf("Subconcept %d.%d.%d", day.DayNumber, c+1, s+1),
			}
			if err := tx.WithContext(ctx).Create(sub).Error; err != nil {
				tb.Fatalf("seed subconcept: %v", err)
			}
			tree.Subconcepts = append(tree.Subconcepts, sub)
			for k := 0; k < tasksPerSub; k++ {
				task := &types.Task{
					ID:           uuid.New(),
					ProjectID:    day.ProjectID,
					DayID:        day.ID,
					SubconceptID: PtrUUID(sub.ID),
					SortOrder:    k + 1,
					Title:        fmt.Sprintf("Task %d.%d.%d.%d", day.DayNumber, c+1, s+1, k+1),
				}
				if err := tx.WithContext(ctx).Create(task).Error; err != nil {
					tb.Fatalf("seed task: %v", err)
				}
				tree.Tasks = append(tree.Tasks, task)
				tree.TasksBySubconcept[sub.ID] = append(tree.TasksBySubconcept[sub.ID], task)
			}
		}
	}
	if err := tx.WithContext(ctx).Model(&types.Day{}).
		Where("id = ?", day.ID).
		Updates(map[string]interface{}{"content_generated": true, "updated_at": time.Now().UTC()}).Error; err != nil {
		tb.Fatalf("seed day content flag: %v", err)
	}
	day.ContentGenerated = true
	return tree
}

// MarkTasksCompleted flips is_completed directly, bypassing the cascade.
func MarkTasksCompleted(tb testing.TB, ctx context.Context, tx *gorm.DB, tasks []*types.Task) {
	tb.Helper()
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return
	}
	if err := tx.WithContext(ctx).Model(&types.Task{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"is_completed": true, "updated_at": time.Now().UTC()}).Error; err != nil {
		tb.Fatalf("mark tasks completed: %v", err)
	}
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
