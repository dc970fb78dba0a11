package progression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

// VerifyTask runs the external check for one Day 0 task and, on success,
// marks it verified and completed, advances the Day 0 chain and re-runs the
// gate. The external call happens outside any transaction. A negative
// answer is a *VerificationError and leaves state untouched.
func (e *Engine) VerifyTask(ctx context.Context, projectID, taskID uuid.UUID, in VerificationInput) (res *VerificationResult, err error) {
	ctx, span := e.startSpan(ctx, "VerifyTask", projectID, attribute.String("task_id", taskID.String()))
	defer func() { finishSpan(span, err) }()

	dbc := dbctx.New(ctx)
	task, err := e.taskFor(dbc, projectID, taskID)
	if err != nil {
		return nil, classifyStoreError("VerifyTask", err)
	}
	if !task.RequiresVerification() {
		return nil, invalid("task %s does not require verification", taskID)
	}
	kind := *task.VerificationKind
	if !kind.Valid() {
		return nil, invalid("task %s has unknown verification kind %q", taskID, kind)
	}
	day, err := e.days.GetByID(dbc, task.DayID)
	if err != nil {
		return nil, classifyStoreError("VerifyTask", err)
	}
	if day == nil {
		return nil, notFound("day", task.DayID)
	}
	if !day.IsVerificationDay() {
		return nil, invalid("day %d has no verification tasks", day.DayNumber)
	}
	span.SetAttributes(attribute.String("verification_kind", string(kind)))

	res = &VerificationResult{Task: task, Kind: kind, Generation: GenerationNotApplicable}
	if task.IsVerified {
		res.AlreadyVerified = true
		res.Cascade = CascadeResult{AlreadyCompleted: true, DayNumber: day.DayNumber}
		res.Unlock, res.Generation, err = e.afterDayCompleted(ctx, projectID, day.DayNumber)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	if !task.IsUnlocked {
		res.Locked = true
		return res, nil
	}
	if e.verifier == nil {
		return nil, fmt.Errorf("%w: no verifier configured", ErrVerifierUnavailable)
	}

	evidence, repoURL, err := e.runVerification(ctx, kind, day, in)
	if err != nil {
		e.log.Info("verification rejected", "project_id", projectID, "task_id", taskID, "kind", kind, "error", err)
		return nil, err
	}
	res.Evidence = evidence
	payload, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("encode verification evidence: %w", err)
	}

	err = e.inTx(ctx, "VerifyTask", func(dbc dbctx.Context) error {
		if _, err := e.lockDay(dbc, projectID, day.ID); err != nil {
			return err
		}
		task, err := e.taskFor(dbc, projectID, taskID)
		if err != nil {
			return err
		}
		if task.IsVerified {
			res.AlreadyVerified = true
		} else if !task.IsUnlocked {
			// The chain was reset while the external check ran.
			res.Task = task
			res.Locked = true
			return nil
		} else {
			now := e.now()
			updates := map[string]interface{}{
				"is_verified":       true,
				"verified_at":       now,
				"verification_data": datatypes.JSON(payload),
			}
			if !task.IsCompleted {
				updates["is_completed"] = true
				updates["completed_at"] = now
				task.IsCompleted = true
				task.CompletedAt = &now
			}
			if err := e.tasks.UpdateFields(dbc, task.ID, updates); err != nil {
				return err
			}
			task.IsVerified = true
			task.VerifiedAt = &now
			task.VerificationData = datatypes.JSON(payload)
			if kind == types.VerificationRepository && repoURL != "" {
				if err := e.days.UpdateFields(dbc, day.ID, map[string]interface{}{"verification_repo_url": repoURL}); err != nil {
					return err
				}
			}
		}
		res.Task = task

		cascade, err := e.cascadeFrom(dbc, task)
		if err != nil {
			return err
		}
		cascade.AlreadyCompleted = res.AlreadyVerified
		res.Cascade = cascade
		fresh, err := e.days.GetByID(dbc, day.ID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return notFound("day", day.ID)
		}
		next, err := e.applyFrontierNext(dbc, fresh)
		if err != nil {
			return err
		}
		res.NextTaskID = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Locked {
		res.Evidence = nil
		return res, nil
	}

	if !res.AlreadyVerified {
		e.log.Info("task verified", "project_id", projectID, "task_id", taskID, "kind", kind)
		e.publish(ctx, ProgressEvent{Type: EventTaskVerified, ProjectID: projectID, DayNumber: intPtr(day.DayNumber), TaskID: uuidPtr(taskID)})
	}
	if res.Cascade.DayCompleted {
		e.publish(ctx, ProgressEvent{Type: EventDayCompleted, ProjectID: projectID, DayNumber: intPtr(day.DayNumber)})
	}
	// The gate check runs after every verification; it is a no-op until all
	// Day 0 tasks are verified.
	res.Unlock, res.Generation, err = e.afterDayCompleted(ctx, projectID, day.DayNumber)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// runVerification dispatches on the closed set of verification kinds. It
// returns the evidence and, for the repository step, the normalized
// repository URL to remember for the commit step.
func (e *Engine) runVerification(ctx context.Context, kind types.VerificationKind, day *types.Day, in VerificationInput) (*Evidence, string, error) {
	var (
		ev      *Evidence
		repoURL string
		err     error
	)
	switch kind {
	case types.VerificationProfile:
		ref, perr := ParseGitHubURL(in.URL)
		if perr != nil || ref.Name != "" {
			return nil, "", rejected(kind, "expected a profile URL like https://github.com/<username>")
		}
		ev, err = e.verifier.VerifyProfile(ctx, ref.Owner)
		err = verifierError(kind, err, fmt.Sprintf("GitHub profile %q not found", ref.Owner))
		repoURL = ref.URL()

	case types.VerificationRepository:
		ref, perr := ParseGitHubURL(in.URL)
		if perr != nil || ref.Name == "" {
			return nil, "", rejected(kind, "expected a repository URL like https://github.com/<username>/<name>%s", e.cfg.RepositorySuffix)
		}
		if !strings.HasSuffix(strings.ToLower(ref.Name), strings.ToLower(e.cfg.RepositorySuffix)) {
			return nil, "", rejected(kind, "repository name must end in %s", e.cfg.RepositorySuffix)
		}
		ev, err = e.verifier.VerifyRepository(ctx, ref.Owner, ref.Name)
		err = verifierError(kind, err, fmt.Sprintf("repository %s not found or not public", ref.FullName()))
		repoURL = ref.URL()

	case types.VerificationCommit:
		if strings.TrimSpace(day.VerificationRepoURL) == "" {
			return nil, "", rejected(kind, "verify your practice repository before checking commits")
		}
		ref, perr := ParseGitHubURL(day.VerificationRepoURL)
		if perr != nil || ref.Name == "" {
			return nil, "", rejected(kind, "stored practice repository URL %q is not a repository URL", day.VerificationRepoURL)
		}
		since := e.now().Add(-e.cfg.CommitWindow)
		ev, err = e.verifier.VerifyRecentCommit(ctx, ref.Owner, ref.Name, since)
		err = verifierError(kind, err, fmt.Sprintf("no commits found in %s within the last %s", ref.FullName(), formatWindow(e.cfg.CommitWindow)))
		repoURL = ref.URL()

	default:
		return nil, "", invalid("unknown verification kind %q", kind)
	}
	if err != nil {
		return nil, "", err
	}
	if ev == nil {
		ev = &Evidence{}
	}
	ev.Kind = kind
	if ev.URL == "" {
		ev.URL = repoURL
	}
	if ev.CheckedAt.IsZero() {
		ev.CheckedAt = e.now()
	}
	return ev, repoURL, nil
}

// verifierError separates negative answers from outages.
func verifierError(kind types.VerificationKind, err error, negative string) error {
	if err == nil {
		return nil
	}
	var ve *VerificationError
	if errors.As(err, &ve) {
		if ve.Kind == "" {
			ve.Kind = kind
		}
		return ve
	}
	if errors.Is(err, ErrRemoteNotFound) || errors.Is(err, ErrNoRecentCommit) {
		return rejected(kind, "%s", negative)
	}
	return fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}

// GitHubRef is an owner, optionally with a repository name.
type GitHubRef struct {
	Owner string
	Name  string
}

func (r GitHubRef) FullName() string {
	if r.Name == "" {
		return r.Owner
	}
	return r.Owner + "/" + r.Name
}

func (r GitHubRef) URL() string {
	return "https://github.com/" + r.FullName()
}

// ParseGitHubURL accepts https://github.com/<owner> and
// https://github.com/<owner>/<repo>[.git], with or without scheme.
func ParseGitHubURL(raw string) (GitHubRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return GitHubRef{}, fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return GitHubRef{}, err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return GitHubRef{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "github.com" {
		return GitHubRef{}, fmt.Errorf("not a github.com url: %s", u.Host)
	}
	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 1:
		return GitHubRef{Owner: parts[0]}, nil
	case 2:
		name := strings.TrimSuffix(parts[1], ".git")
		if name == "" {
			return GitHubRef{}, fmt.Errorf("empty repository name")
		}
		return GitHubRef{Owner: parts[0], Name: name}, nil
	default:
		return GitHubRef{}, fmt.Errorf("unexpected path %q", u.Path)
	}
}
