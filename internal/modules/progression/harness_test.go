package progression

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/gitguide-backend/internal/data/repos"
	"github.com/yungbote/gitguide-backend/internal/data/repos/testutil"
	types "github.com/yungbote/gitguide-backend/internal/domain"
)

type fakeVerifier struct {
	mu         sync.Mutex
	calls      []string
	since      time.Time
	profileErr error
	repoErr    error
	commitErr  error
	// during runs inside every external call, before it answers.
	during func()
}

func (f *fakeVerifier) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	during := f.during
	f.mu.Unlock()
	if during != nil {
		during()
	}
}

func (f *fakeVerifier) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeVerifier) VerifyProfile(ctx context.Context, username string) (*Evidence, error) {
	f.record("profile:" + username)
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &Evidence{Login: username, PublicRepos: 3}, nil
}

func (f *fakeVerifier) VerifyRepository(ctx context.Context, owner, name string) (*Evidence, error) {
	f.record("repository:" + owner + "/" + name)
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return &Evidence{RepoFullName: owner + "/" + name, DefaultBranch: "main"}, nil
}

func (f *fakeVerifier) VerifyRecentCommit(ctx context.Context, owner, name string, since time.Time) (*Evidence, error) {
	f.record("commit:" + owner + "/" + name)
	f.mu.Lock()
	f.since = since
	f.mu.Unlock()
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	return &Evidence{RepoFullName: owner + "/" + name, CommitSHA: "abc123", CommitMessage: "edit readme"}, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []GenerationRequest
	err      error
}

func (f *fakeDispatcher) RequestGeneration(ctx context.Context, req GenerationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeDispatcher) Requests() []GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GenerationRequest(nil), f.requests...)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recordingEvents) Publish(ctx context.Context, ev ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) Count(typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type harness struct {
	ctx        context.Context
	db         *gorm.DB
	engine     *Engine
	verifier   *fakeVerifier
	dispatcher *fakeDispatcher
	events     *recordingEvents
	now        time.Time
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		ctx:        context.Background(),
		db:         db,
		verifier:   &fakeVerifier{},
		dispatcher: &fakeDispatcher{},
		events:     &recordingEvents{},
		now:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := DefaultConfig()
	cfg.PrefetchFirstDay = false
	cfg.Now = func() time.Time { return h.now }
	for _, opt := range opts {
		opt(&cfg)
	}
	eng, err := New(Deps{
		DB:          db,
		Log:         log,
		Projects:    repos.NewProjectRepo(db, log),
		Days:        repos.NewDayRepo(db, log),
		Concepts:    repos.NewConceptRepo(db, log),
		Subconcepts: repos.NewSubconceptRepo(db, log),
		Tasks:       repos.NewTaskRepo(db, log),
		Verifier:    h.verifier,
		Dispatcher:  h.dispatcher,
		Events:      h.events,
		Config:      cfg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.engine = eng
	return h
}

// seed creates a project and its fifteen empty days directly in the store.
func (h *harness) seed(t *testing.T) (*types.Project, []*types.Day) {
	t.Helper()
	project := testutil.SeedProject(t, h.ctx, h.db)
	return project, testutil.SeedDays(t, h.ctx, h.db, project.ID)
}

// unlock opens a day the way a satisfied gate would, then lets RecomputeAll
// derive its frontier.
func (h *harness) unlock(t *testing.T, projectID uuid.UUID, day *types.Day) {
	t.Helper()
	if err := h.db.Model(&types.Day{}).Where("id = ?", day.ID).Update("is_unlocked", true).Error; err != nil {
		t.Fatalf("unlock day: %v", err)
	}
	day.IsUnlocked = true
	if _, err := h.engine.RecomputeAll(h.ctx, projectID); err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
}

func (h *harness) initProject(t *testing.T) *types.Project {
	t.Helper()
	project, created, err := h.engine.InitializeProject(h.ctx, ProjectInput{
		UserID:  uuid.New(),
		RepoURL: "https://github.com/octocat/hello-world",
		Name:    "hello-world",
	})
	if err != nil {
		t.Fatalf("InitializeProject: %v", err)
	}
	if !created {
		t.Fatalf("expected a new project")
	}
	return project
}

func (h *harness) project(t *testing.T, id uuid.UUID) *types.Project {
	t.Helper()
	var out types.Project
	if err := h.db.First(&out, "id = ?", id).Error; err != nil {
		t.Fatalf("load project: %v", err)
	}
	return &out
}

func (h *harness) day(t *testing.T, projectID uuid.UUID, number int) *types.Day {
	t.Helper()
	var out types.Day
	if err := h.db.First(&out, "project_id = ? AND day_number = ?", projectID, number).Error; err != nil {
		t.Fatalf("load day %d: %v", number, err)
	}
	return &out
}

func (h *harness) concept(t *testing.T, id uuid.UUID) *types.Concept {
	t.Helper()
	var out types.Concept
	if err := h.db.First(&out, "id = ?", id).Error; err != nil {
		t.Fatalf("load concept: %v", err)
	}
	return &out
}

func (h *harness) subconcept(t *testing.T, id uuid.UUID) *types.Subconcept {
	t.Helper()
	var out types.Subconcept
	if err := h.db.First(&out, "id = ?", id).Error; err != nil {
		t.Fatalf("load subconcept: %v", err)
	}
	return &out
}

func (h *harness) task(t *testing.T, id uuid.UUID) *types.Task {
	t.Helper()
	var out types.Task
	if err := h.db.First(&out, "id = ?", id).Error; err != nil {
		t.Fatalf("load task: %v", err)
	}
	return &out
}

// setupTasks returns Day 0's tasks keyed by verification kind.
func (h *harness) setupTasks(t *testing.T, projectID uuid.UUID) map[types.VerificationKind]*types.Task {
	t.Helper()
	day0 := h.day(t, projectID, 0)
	var tasks []*types.Task
	if err := h.db.Where("day_id = ?", day0.ID).Find(&tasks).Error; err != nil {
		t.Fatalf("load day 0 tasks: %v", err)
	}
	out := map[types.VerificationKind]*types.Task{}
	for _, task := range tasks {
		if task.VerificationKind == nil {
			t.Fatalf("day 0 task %q has no verification kind", task.Title)
		}
		out[*task.VerificationKind] = task
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 setup tasks, got %d", len(out))
	}
	return out
}

// assertDayOpen checks a day is unlocked with every concept and subconcept
// unlocked and exactly the lowest-order incomplete task of each subconcept
// unlocked.
func (h *harness) assertDayOpen(t *testing.T, projectID uuid.UUID, number int) {
	t.Helper()
	day := h.day(t, projectID, number)
	if !day.IsUnlocked {
		t.Fatalf("day %d should be unlocked", number)
	}
	var concepts []*types.Concept
	if err := h.db.Where("day_id = ?", day.ID).Find(&concepts).Error; err != nil {
		t.Fatalf("load concepts: %v", err)
	}
	for _, c := range concepts {
		if !c.IsUnlocked {
			t.Fatalf("concept %q of day %d should be unlocked", c.Title, number)
		}
	}
	h.assertSingleFrontier(t, day.ID)
}

func (h *harness) assertSingleFrontier(t *testing.T, dayID uuid.UUID) {
	t.Helper()
	var subs []*types.Subconcept
	if err := h.db.Where("day_id = ?", dayID).Find(&subs).Error; err != nil {
		t.Fatalf("load subconcepts: %v", err)
	}
	for _, s := range subs {
		if !s.IsUnlocked {
			t.Fatalf("subconcept %q should be unlocked", s.Title)
		}
		var tasks []*types.Task
		if err := h.db.Where("subconcept_id = ?", s.ID).Order("sort_order ASC, id ASC").Find(&tasks).Error; err != nil {
			t.Fatalf("load tasks: %v", err)
		}
		var want *uuid.UUID
		for _, task := range tasks {
			if !task.IsCompleted {
				id := task.ID
				want = &id
				break
			}
		}
		var unlocked []uuid.UUID
		for _, task := range tasks {
			if task.IsUnlocked {
				unlocked = append(unlocked, task.ID)
			}
		}
		switch {
		case want == nil && len(unlocked) != 0:
			t.Fatalf("subconcept %q is done but has %d unlocked tasks", s.Title, len(unlocked))
		case want != nil && (len(unlocked) != 1 || unlocked[0] != *want):
			t.Fatalf("subconcept %q frontier: unlocked=%v want [%s]", s.Title, unlocked, *want)
		}
	}
}

// stateOf renders every progression flag and ratio of a project, ignoring
// timestamps, so two points in time can be compared.
func (h *harness) stateOf(t *testing.T, projectID uuid.UUID) string {
	t.Helper()
	var lines []string
	p := h.project(t, projectID)
	lines = append(lines, fmt.Sprintf("project cur=%d done=%d r=%.9f", p.CurrentDay, p.CompletedDayCount, p.ProgressRatio))

	var days []*types.Day
	var concepts []*types.Concept
	var subs []*types.Subconcept
	var tasks []*types.Task
	for _, q := range []interface{}{&days, &concepts, &subs, &tasks} {
		if err := h.db.Where("project_id = ?", projectID).Find(q).Error; err != nil {
			t.Fatalf("load state: %v", err)
		}
	}
	for _, d := range days {
		lines = append(lines, fmt.Sprintf("day %s n=%d u=%t c=%t v=%t g=%t s=%t r=%.9f", d.ID, d.DayNumber, d.IsUnlocked, d.IsCompleted, d.IsVerified, d.ContentGenerated, d.GenerationStarted, d.ProgressRatio))
	}
	for _, c := range concepts {
		lines = append(lines, fmt.Sprintf("concept %s u=%t c=%t r=%.9f", c.ID, c.IsUnlocked, c.IsCompleted, c.ProgressRatio))
	}
	for _, s := range subs {
		lines = append(lines, fmt.Sprintf("sub %s u=%t c=%t r=%.9f", s.ID, s.IsUnlocked, s.IsCompleted, s.ProgressRatio))
	}
	for _, task := range tasks {
		lines = append(lines, fmt.Sprintf("task %s u=%t c=%t v=%t", task.ID, task.IsUnlocked, task.IsCompleted, task.IsVerified))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func assertRatio(t *testing.T, what string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s progress_ratio: got %v want %v", what, got, want)
	}
}

func sampleContent(concepts, subs, tasks int) DayContent {
	var out DayContent
	out.Description = "generated"
	for c := 0; c < concepts; c++ {
		cc := ConceptContent{Title: fmt.Sprintf("Concept %d", c+1)}
		for s := 0; s < subs; s++ {
			sc := SubconceptContent{Title: fmt.Sprintf("Subconcept %d.%d", c+1, s+1)}
			for k := 0; k < tasks; k++ {
				sc.Tasks = append(sc.Tasks, TaskContent{
					Title:        fmt.Sprintf("Task %d.%d.%d", c+1, s+1, k+1),
					Difficulty:   "beginner",
					FilesToStudy: []string{"README.md"},
				})
			}
			cc.Subconcepts = append(cc.Subconcepts, sc)
		}
		out.Concepts = append(out.Concepts, cc)
	}
	return out
}
