package progression

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

type ProjectInput struct {
	UserID     uuid.UUID `json:"user_id"`
	RepoURL    string    `json:"repo_url"`
	Name       string    `json:"name"`
	SkillLevel string    `json:"skill_level,omitempty"`
	Domain     string    `json:"domain,omitempty"`
}

// InitializeProject creates a project with its full fifteen-day skeleton in
// one transaction: Day 0 unlocked with its three setup steps, Days 1-14
// locked and empty. Initializing the same user and repository again returns
// the existing project with created=false.
func (e *Engine) InitializeProject(ctx context.Context, in ProjectInput) (project *types.Project, created bool, err error) {
	ctx, span := e.startSpan(ctx, "InitializeProject", uuid.Nil, attribute.String("repo_url", in.RepoURL))
	defer func() { finishSpan(span, err) }()

	in.RepoURL = strings.TrimSpace(in.RepoURL)
	in.Name = strings.TrimSpace(in.Name)
	if in.UserID == uuid.Nil {
		return nil, false, invalid("user id is required")
	}
	if in.RepoURL == "" {
		return nil, false, invalid("repository url is required")
	}
	if in.Name == "" {
		if ref, perr := ParseGitHubURL(in.RepoURL); perr == nil && ref.Name != "" {
			in.Name = ref.Name
		} else {
			return nil, false, invalid("project name is required")
		}
	}

	existing, err := e.projects.GetByUserAndRepo(dbctx.New(ctx), in.UserID, in.RepoURL)
	if err != nil {
		return nil, false, classifyStoreError("InitializeProject", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	err = e.inTx(ctx, "InitializeProject", func(dbc dbctx.Context) error {
		p, err := e.projects.Create(dbc, &types.Project{
			UserID:     in.UserID,
			RepoURL:    in.RepoURL,
			Name:       in.Name,
			SkillLevel: in.SkillLevel,
			Domain:     in.Domain,
		})
		if err != nil {
			return err
		}
		project = p
		return e.createSkeleton(dbc, p)
	})
	if err != nil {
		// A concurrent call may have won the unique (user, repo) index.
		if again, rerr := e.projects.GetByUserAndRepo(dbctx.New(ctx), in.UserID, in.RepoURL); rerr == nil && again != nil {
			return again, false, nil
		}
		return nil, false, err
	}
	span.SetAttributes(attribute.String("project_id", project.ID.String()))
	e.log.Info("project initialized", "project_id", project.ID, "user_id", in.UserID, "name", project.Name)

	if e.cfg.PrefetchFirstDay {
		if _, gerr := e.EnsureGenerated(ctx, project.ID, types.FirstDayNumber+1); gerr != nil {
			e.log.Warn("day 1 prefetch failed", "project_id", project.ID, "error", gerr)
		}
	}
	return project, true, nil
}

func (e *Engine) createSkeleton(dbc dbctx.Context, project *types.Project) error {
	days := make([]*types.Day, 0, len(e.curriculum.Days))
	for _, cd := range e.curriculum.Days {
		first := cd.Number == types.FirstDayNumber
		days = append(days, &types.Day{
			ProjectID:            project.ID,
			DayNumber:            cd.Number,
			Name:                 render(cd.Name, project.Name, e.cfg.RepositorySuffix),
			Description:          render(cd.Description, project.Name, e.cfg.RepositorySuffix),
			IsUnlocked:           first,
			RequiresVerification: first,
			ContentGenerated:     first,
		})
	}
	if _, err := e.days.Create(dbc, days); err != nil {
		return err
	}
	day0 := days[0]

	for i, step := range e.curriculum.Verification {
		concept := &types.Concept{
			ProjectID:   project.ID,
			DayID:       day0.ID,
			SortOrder:   i + 1,
			Title:       render(step.Concept.Title, project.Name, e.cfg.RepositorySuffix),
			Description: render(step.Concept.Description, project.Name, e.cfg.RepositorySuffix),
			IsUnlocked:  true,
		}
		if _, err := e.concepts.Create(dbc, []*types.Concept{concept}); err != nil {
			return err
		}
		conceptID := concept.ID
		task := &types.Task{
			ProjectID:        project.ID,
			DayID:            day0.ID,
			ConceptID:        &conceptID,
			SortOrder:        1,
			Title:            render(step.Task.Title, project.Name, e.cfg.RepositorySuffix),
			Description:      render(step.Task.Description, project.Name, e.cfg.RepositorySuffix),
			VerificationKind: step.Kind.Ptr(),
		}
		if _, err := e.tasks.Create(dbc, []*types.Task{task}); err != nil {
			return err
		}
	}
	return e.applyFrontier(dbc, day0)
}
