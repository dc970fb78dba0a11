package progression

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/gitguide-backend/internal/domain"
)

// Verifier checks Day 0 setup steps against the source-hosting service.
// Negative answers wrap ErrRemoteNotFound or ErrNoRecentCommit (or return a
// *VerificationError directly); any other error is treated as an outage.
type Verifier interface {
	VerifyProfile(ctx context.Context, username string) (*Evidence, error)
	VerifyRepository(ctx context.Context, owner, name string) (*Evidence, error)
	VerifyRecentCommit(ctx context.Context, owner, name string, since time.Time) (*Evidence, error)
}

// Evidence is what a successful verification observed. It is stored as the
// task's verification_data.
type Evidence struct {
	Kind          types.VerificationKind `json:"kind"`
	URL           string                 `json:"url,omitempty"`
	Login         string                 `json:"login,omitempty"`
	DisplayName   string                 `json:"display_name,omitempty"`
	PublicRepos   int                    `json:"public_repos,omitempty"`
	RepoFullName  string                 `json:"repo_full_name,omitempty"`
	DefaultBranch string                 `json:"default_branch,omitempty"`
	Private       bool                   `json:"private,omitempty"`
	CommitSHA     string                 `json:"commit_sha,omitempty"`
	CommitMessage string                 `json:"commit_message,omitempty"`
	CommitAuthor  string                 `json:"commit_author,omitempty"`
	CommittedAt   *time.Time             `json:"committed_at,omitempty"`
	CheckedAt     time.Time              `json:"checked_at"`
}

// GenerationRequest asks the content generator to fill one day.
type GenerationRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	DayID     uuid.UUID `json:"day_id"`
	DayNumber int       `json:"day_number"`
}

// Dispatcher hands a generation request off asynchronously. It must not
// wait for the content; the generator calls ApplyGeneratedContent (or
// ReleaseGeneration on failure) when it is done.
type Dispatcher interface {
	RequestGeneration(ctx context.Context, req GenerationRequest) error
}

// DayBrief is what a content generator is told about the day it fills.
type DayBrief struct {
	ProjectID      uuid.UUID `json:"project_id"`
	ProjectName    string    `json:"project_name"`
	RepoURL        string    `json:"repo_url"`
	SkillLevel     string    `json:"skill_level,omitempty"`
	Domain         string    `json:"domain,omitempty"`
	DayNumber      int       `json:"day_number"`
	DayName        string    `json:"day_name"`
	DayDescription string    `json:"day_description,omitempty"`
}

// ContentGenerator produces the hierarchy for one regular day.
type ContentGenerator interface {
	GenerateDay(ctx context.Context, brief DayBrief) (DayContent, error)
}

type EventType string

const (
	EventTaskCompleted       EventType = "task_completed"
	EventTaskVerified        EventType = "task_verified"
	EventDayCompleted        EventType = "day_completed"
	EventDayUnlocked         EventType = "day_unlocked"
	EventGenerationRequested EventType = "generation_requested"
	EventContentGenerated    EventType = "content_generated"
)

type ProgressEvent struct {
	Type      EventType  `json:"type"`
	ProjectID uuid.UUID  `json:"project_id"`
	DayNumber *int       `json:"day_number,omitempty"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	At        time.Time  `json:"at"`
}

// EventPublisher fans progress events out after a commit. Failures are
// logged by the engine and never fail the operation.
type EventPublisher interface {
	Publish(ctx context.Context, ev ProgressEvent) error
}
