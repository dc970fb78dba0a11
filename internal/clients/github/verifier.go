package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/envutil"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type Config struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

func LoadConfig() Config {
	return Config{
		Token:   envutil.String("GITHUB_ACCESS_TOKEN", ""),
		BaseURL: envutil.String("GITHUB_API_URL", ""),
		Timeout: envutil.Duration("GITHUB_TIMEOUT", 10*time.Second),
	}
}

// Verifier answers Day 0 setup checks from the GitHub REST API.
type Verifier struct {
	log *logger.Logger
	gh  *gh.Client
	now func() time.Time
}

var _ progression.Verifier = (*Verifier)(nil)

func NewVerifier(log *logger.Logger, cfg Config) (*Verifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := gh.NewClient(&http.Client{Timeout: timeout})
	if tok := strings.TrimSpace(cfg.Token); tok != "" {
		client = client.WithAuthToken(tok)
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		var err error
		client, err = client.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
	}
	return &Verifier{
		log: log.With("service", "GitHubVerifier"),
		gh:  client,
		now: time.Now,
	}, nil
}

func (v *Verifier) VerifyProfile(ctx context.Context, username string) (*progression.Evidence, error) {
	user, _, err := v.gh.Users.Get(ctx, username)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("GitHub user %q not found: %w", username, progression.ErrRemoteNotFound)
		}
		v.log.Warn("github profile lookup failed", "username", username, "error", err)
		return nil, fmt.Errorf("github users.get: %w", err)
	}
	return &progression.Evidence{
		Kind:        types.VerificationProfile,
		URL:         user.GetHTMLURL(),
		Login:       user.GetLogin(),
		DisplayName: user.GetName(),
		PublicRepos: user.GetPublicRepos(),
		CheckedAt:   v.now().UTC(),
	}, nil
}

func (v *Verifier) VerifyRepository(ctx context.Context, owner, name string) (*progression.Evidence, error) {
	repo, _, err := v.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("repository %q not found on GitHub: %w", owner+"/"+name, progression.ErrRemoteNotFound)
		}
		v.log.Warn("github repository lookup failed", "owner", owner, "repo", name, "error", err)
		return nil, fmt.Errorf("github repositories.get: %w", err)
	}
	return &progression.Evidence{
		Kind:          types.VerificationRepository,
		URL:           repo.GetHTMLURL(),
		Login:         repo.GetOwner().GetLogin(),
		RepoFullName:  repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
		CheckedAt:     v.now().UTC(),
	}, nil
}

func (v *Verifier) VerifyRecentCommit(ctx context.Context, owner, name string, since time.Time) (*progression.Evidence, error) {
	opts := &gh.CommitsListOptions{
		Since:       since.UTC(),
		ListOptions: gh.ListOptions{PerPage: 1},
	}
	commits, _, err := v.gh.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		switch {
		case isStatus(err, http.StatusNotFound):
			return nil, fmt.Errorf("repository %q not found on GitHub: %w", owner+"/"+name, progression.ErrRemoteNotFound)
		case isStatus(err, http.StatusConflict):
			// GitHub answers 409 for a repository with no commits at all.
			return nil, fmt.Errorf("repository %q is empty: %w", owner+"/"+name, progression.ErrNoRecentCommit)
		}
		v.log.Warn("github commit lookup failed", "owner", owner, "repo", name, "error", err)
		return nil, fmt.Errorf("github repositories.listCommits: %w", err)
	}
	if len(commits) == 0 || commits[0] == nil {
		return nil, fmt.Errorf("no commits in %q since %s: %w", owner+"/"+name, since.UTC().Format(time.RFC3339), progression.ErrNoRecentCommit)
	}

	latest := commits[0]
	ev := &progression.Evidence{
		Kind:          types.VerificationCommit,
		URL:           latest.GetHTMLURL(),
		RepoFullName:  owner + "/" + name,
		CommitSHA:     latest.GetSHA(),
		CommitMessage: latest.GetCommit().GetMessage(),
		CommitAuthor:  latest.GetCommit().GetAuthor().GetName(),
		CheckedAt:     v.now().UTC(),
	}
	if date := latest.GetCommit().GetCommitter().GetDate(); !date.IsZero() {
		at := date.UTC()
		ev.CommittedAt = &at
	}
	return ev, nil
}

func isStatus(err error, status int) bool {
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode == status
	}
	return false
}
