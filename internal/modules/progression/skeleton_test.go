package progression

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/gitguide-backend/internal/domain"
)

func TestInitializeProjectCreatesSkeleton(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.PrefetchFirstDay = true })
	userID := uuid.New()
	in := ProjectInput{UserID: userID, RepoURL: "https://github.com/octocat/spoon-knife"}

	project, created, err := h.engine.InitializeProject(h.ctx, in)
	if err != nil {
		t.Fatalf("InitializeProject: %v", err)
	}
	if !created || project.Name != "spoon-knife" || project.TotalDayCount != types.TotalDayCount {
		t.Fatalf("project: created=%t %+v", created, project)
	}

	var days []*types.Day
	if err := h.db.Where("project_id = ?", project.ID).Order("day_number ASC").Find(&days).Error; err != nil {
		t.Fatalf("load days: %v", err)
	}
	if len(days) != types.TotalDayCount {
		t.Fatalf("expected %d days, got %d", types.TotalDayCount, len(days))
	}
	for _, d := range days {
		first := d.DayNumber == 0
		if d.IsUnlocked != first || d.RequiresVerification != first {
			t.Fatalf("day %d flags: unlocked=%t verification=%t", d.DayNumber, d.IsUnlocked, d.RequiresVerification)
		}
	}
	if days[1].Name != "Day 1: Getting Started" || days[14].Name != "Day 14: Mastery" {
		t.Fatalf("day names: %q %q", days[1].Name, days[14].Name)
	}
	if !strings.Contains(days[0].Description, `"spoon-knife-gitguide"`) {
		t.Fatalf("day 0 description: %q", days[0].Description)
	}

	setup := h.setupTasks(t, project.ID)
	if !setup[types.VerificationProfile].IsUnlocked {
		t.Fatalf("first setup task should be unlocked")
	}
	if setup[types.VerificationRepository].IsUnlocked || setup[types.VerificationCommit].IsUnlocked {
		t.Fatalf("later setup tasks should be locked")
	}
	if setup[types.VerificationProfile].Title != "Create GitHub Account & Verify Profile" {
		t.Fatalf("profile task title: %q", setup[types.VerificationProfile].Title)
	}

	reqs := h.dispatcher.Requests()
	if len(reqs) != 1 || reqs[0].DayNumber != 1 {
		t.Fatalf("day 1 prefetch: %+v", reqs)
	}
	if !h.day(t, project.ID, 1).GenerationStarted {
		t.Fatalf("day 1 generation should be claimed")
	}

	again, created, err := h.engine.InitializeProject(h.ctx, in)
	if err != nil {
		t.Fatalf("InitializeProject again: %v", err)
	}
	if created || again.ID != project.ID {
		t.Fatalf("expected the existing project back")
	}
	var count int64
	if err := h.db.Model(&types.Day{}).Where("project_id = ?", project.ID).Count(&count).Error; err != nil {
		t.Fatalf("count days: %v", err)
	}
	if count != types.TotalDayCount {
		t.Fatalf("second initialize duplicated days: %d", count)
	}
}

func TestInitializeProjectValidation(t *testing.T) {
	h := newHarness(t)
	cases := []ProjectInput{
		{RepoURL: "https://github.com/a/b", Name: "b"},
		{UserID: uuid.New(), Name: "b"},
		{UserID: uuid.New(), RepoURL: "not a github url"},
	}
	for i, in := range cases {
		if _, _, err := h.engine.InitializeProject(h.ctx, in); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: got %v", i, err)
		}
	}
}

func TestLoadCurriculum(t *testing.T) {
	c, err := DefaultCurriculum()
	if err != nil {
		t.Fatalf("DefaultCurriculum: %v", err)
	}
	if len(c.Days) != types.TotalDayCount || len(c.Verification) != 3 {
		t.Fatalf("curriculum shape: %d days %d steps", len(c.Days), len(c.Verification))
	}

	if _, err := LoadCurriculum([]byte("days: []\n")); err == nil {
		t.Fatalf("expected error for empty curriculum")
	}
	swapped := strings.Replace(string(defaultCurriculumYAML), "kind: profile", "kind: commit_verification", 1)
	if _, err := LoadCurriculum([]byte(swapped)); err == nil {
		t.Fatalf("expected error for out-of-order setup steps")
	}
}
