package progression

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/data/repos"
	"github.com/yungbote/gitguide-backend/internal/data/repos/testutil"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

func TestEnsureGeneratedDispatchesOnce(t *testing.T) {
	h := newHarness(t)
	project, _ := h.seed(t)

	first, err := h.engine.EnsureGenerated(h.ctx, project.ID, 7)
	if err != nil {
		t.Fatalf("EnsureGenerated: %v", err)
	}
	second, err := h.engine.EnsureGenerated(h.ctx, project.ID, 7)
	if err != nil {
		t.Fatalf("EnsureGenerated again: %v", err)
	}
	if first != GenerationTriggered || second != GenerationInFlight {
		t.Fatalf("outcomes: first=%q second=%q", first, second)
	}
	if n := len(h.dispatcher.Requests()); n != 1 {
		t.Fatalf("dispatched %d times", n)
	}
	if !h.day(t, project.ID, 7).GenerationStarted {
		t.Fatalf("generation_started should be set")
	}

	if _, err := h.engine.ApplyGeneratedContent(h.ctx, project.ID, 7, sampleContent(1, 1, 1)); err != nil {
		t.Fatalf("ApplyGeneratedContent: %v", err)
	}
	third, err := h.engine.EnsureGenerated(h.ctx, project.ID, 7)
	if err != nil {
		t.Fatalf("EnsureGenerated after content: %v", err)
	}
	if third != AlreadyGenerated {
		t.Fatalf("third outcome: %q", third)
	}
}

func TestEnsureGeneratedConcurrentCallers(t *testing.T) {
	h := newHarness(t)
	project, _ := h.seed(t)

	const callers = 8
	outcomes := make([]GenerationOutcome, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = h.engine.EnsureGenerated(h.ctx, project.ID, 4)
		}(i)
	}
	wg.Wait()

	triggered := 0
	for i := range outcomes {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if outcomes[i] == GenerationTriggered {
			triggered++
		} else if outcomes[i] != GenerationInFlight {
			t.Fatalf("caller %d: unexpected outcome %q", i, outcomes[i])
		}
	}
	if triggered != 1 || len(h.dispatcher.Requests()) != 1 {
		t.Fatalf("triggered=%d dispatched=%d", triggered, len(h.dispatcher.Requests()))
	}
}

func TestClaimGenerationInterleaved(t *testing.T) {
	h := newHarness(t)
	_, days := h.seed(t)
	dayRepo := repos.NewDayRepo(h.db, testutil.Logger(t))
	dbc := dbctx.New(h.ctx)

	// Two callers that both observed generation_started=false; the guarded
	// update lets only one of them through.
	a, err := dayRepo.ClaimGeneration(dbc, days[9].ID)
	if err != nil {
		t.Fatalf("claim a: %v", err)
	}
	b, err := dayRepo.ClaimGeneration(dbc, days[9].ID)
	if err != nil {
		t.Fatalf("claim b: %v", err)
	}
	if !a || b {
		t.Fatalf("exactly one claim must win: a=%t b=%t", a, b)
	}
}

func TestEnsureGeneratedReleasesClaimOnDispatchFailure(t *testing.T) {
	h := newHarness(t)
	project, _ := h.seed(t)
	h.dispatcher.err = errors.New("queue down")

	if _, err := h.engine.EnsureGenerated(h.ctx, project.ID, 2); !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	if h.day(t, project.ID, 2).GenerationStarted {
		t.Fatalf("claim should be released")
	}

	h.dispatcher.err = nil
	outcome, err := h.engine.EnsureGenerated(h.ctx, project.ID, 2)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if outcome != GenerationTriggered {
		t.Fatalf("retry outcome: %q", outcome)
	}
}

func TestOnDayCompletedOutcomes(t *testing.T) {
	h := newHarness(t)
	project, days := h.seed(t)

	outcome, err := h.engine.OnDayCompleted(h.ctx, project.ID, 14)
	if err != nil || outcome != GenerationNotApplicable {
		t.Fatalf("last day: %q %v", outcome, err)
	}
	outcome, err = h.engine.OnDayCompleted(h.ctx, project.ID, 3)
	if err != nil || outcome != GenerationNotApplicable {
		t.Fatalf("incomplete day: %q %v", outcome, err)
	}

	tree := testutil.SeedDayContent(t, h.ctx, h.db, days[3], 1, 1, 1)
	h.unlock(t, project.ID, days[3])
	if _, err := h.engine.CompleteTask(h.ctx, project.ID, tree.Tasks[0].ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	outcome, err = h.engine.OnDayCompleted(h.ctx, project.ID, 3)
	if err != nil {
		t.Fatalf("OnDayCompleted: %v", err)
	}
	if outcome != GenerationInFlight {
		t.Fatalf("completion already triggered day 4, got %q", outcome)
	}
	reqs := h.dispatcher.Requests()
	if len(reqs) != 1 || reqs[0].DayNumber != 4 {
		t.Fatalf("requests: %+v", reqs)
	}
}

func TestReleaseGeneration(t *testing.T) {
	h := newHarness(t)
	project, _ := h.seed(t)
	if _, err := h.engine.EnsureGenerated(h.ctx, project.ID, 5); err != nil {
		t.Fatalf("EnsureGenerated: %v", err)
	}
	released, err := h.engine.ReleaseGeneration(h.ctx, project.ID, 5)
	if err != nil || !released {
		t.Fatalf("release: %t %v", released, err)
	}
	released, err = h.engine.ReleaseGeneration(h.ctx, project.ID, 5)
	if err != nil || released {
		t.Fatalf("second release should be a no-op: %t %v", released, err)
	}
}

func TestBrief(t *testing.T) {
	h := newHarness(t)
	project := h.initProject(t)

	brief, err := h.engine.Brief(h.ctx, project.ID, 2)
	if err != nil {
		t.Fatalf("Brief: %v", err)
	}
	if brief.ProjectName != "hello-world" || brief.RepoURL != project.RepoURL || brief.DayNumber != 2 {
		t.Fatalf("brief: %+v", brief)
	}
	if brief.DayName != h.day(t, project.ID, 2).Name {
		t.Fatalf("day name: %q", brief.DayName)
	}

	for _, n := range []int{0, 15} {
		if _, err := h.engine.Brief(h.ctx, project.ID, n); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("day %d: got %v", n, err)
		}
	}
	if _, err := h.engine.Brief(h.ctx, uuid.New(), 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown project: got %v", err)
	}
}
