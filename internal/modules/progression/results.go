package progression

import (
	"fmt"

	"github.com/google/uuid"

	types "github.com/yungbote/gitguide-backend/internal/domain"
)

type Level string

const (
	LevelSubconcept Level = "subconcept"
	LevelConcept    Level = "concept"
	LevelDay        Level = "day"
	LevelProject    Level = "project"
)

// CascadeResult reports which ancestors a completion newly completed.
type CascadeResult struct {
	AlreadyCompleted    bool              `json:"already_completed"`
	SubconceptCompleted bool              `json:"subconcept_completed"`
	ConceptCompleted    bool              `json:"concept_completed"`
	DayCompleted        bool              `json:"day_completed"`
	ProjectCompleted    bool              `json:"project_completed"`
	DayNumber           int               `json:"day_number"`
	ProgressByLevel     map[Level]float64 `json:"progress_by_level,omitempty"`
}

type GateKind string

const (
	GateCompletion   GateKind = "completion"
	GateVerification GateKind = "verification"
)

// GateStatus is the precondition a day must meet before its successor
// unlocks. An unsatisfied gate is an answer, not an error.
type GateStatus struct {
	DayNumber int      `json:"day_number"`
	Kind      GateKind `json:"kind"`
	Done      int      `json:"done"`
	Total     int      `json:"total"`
	Satisfied bool     `json:"satisfied"`
}

func (g GateStatus) Message() string {
	verb := "completed"
	if g.Kind == GateVerification {
		verb = "verified"
	}
	return fmt.Sprintf("%d of %d tasks %s", g.Done, g.Total, verb)
}

type UnlockResult struct {
	TargetDay int `json:"target_day"`
	// DayLocked is set when the completed day itself was never unlocked, so
	// its gate cannot open the next one.
	DayLocked       bool       `json:"day_locked,omitempty"`
	Unlocked        bool       `json:"unlocked"`
	AlreadyUnlocked bool       `json:"already_unlocked"`
	Terminal        bool       `json:"terminal"`
	Gate            GateStatus `json:"gate"`
}

type GenerationOutcome string

const (
	GenerationNotApplicable GenerationOutcome = "not_applicable"
	AlreadyGenerated        GenerationOutcome = "already_generated"
	// GenerationInFlight is the defined no-op when another caller already
	// holds the generation claim for the day.
	GenerationInFlight  GenerationOutcome = "generation_started"
	GenerationTriggered GenerationOutcome = "generation_triggered"
)

type CompletionResult struct {
	Task *types.Task `json:"task"`
	// Locked is set when the task is not the frontier of an unlocked day;
	// nothing was written.
	Locked     bool              `json:"locked,omitempty"`
	Cascade    CascadeResult     `json:"cascade"`
	Unlock     *UnlockResult     `json:"unlock,omitempty"`
	Generation GenerationOutcome `json:"generation,omitempty"`
}

type VerificationInput struct {
	URL string `json:"url"`
}

type VerificationResult struct {
	Task            *types.Task            `json:"task"`
	Kind            types.VerificationKind `json:"kind"`
	AlreadyVerified bool                   `json:"already_verified"`
	// Locked means the task is not on the Day 0 frontier yet; nothing ran.
	Locked     bool              `json:"locked"`
	Evidence   *Evidence         `json:"evidence,omitempty"`
	NextTaskID *uuid.UUID        `json:"next_task_id,omitempty"`
	Cascade    CascadeResult     `json:"cascade"`
	Unlock     *UnlockResult     `json:"unlock,omitempty"`
	Generation GenerationOutcome `json:"generation,omitempty"`
}

type ApplyResult struct {
	DayNumber        int  `json:"day_number"`
	Applied          bool `json:"applied"`
	AlreadyGenerated bool `json:"already_generated"`
	Concepts         int  `json:"concepts"`
	Subconcepts      int  `json:"subconcepts"`
	Tasks            int  `json:"tasks"`
}

type ProgressSnapshot struct {
	ProjectID          uuid.UUID     `json:"project_id"`
	ProgressRatio      float64       `json:"progress_ratio"`
	ProgressPercentage float64       `json:"progress_percentage"`
	CurrentDay         int           `json:"current_day"`
	CompletedDays      int           `json:"completed_days"`
	TotalDays          int           `json:"total_days"`
	UnlockedDays       int           `json:"unlocked_days"`
	TotalTasks         int           `json:"total_tasks"`
	CompletedTasks     int           `json:"completed_tasks"`
	TasksRemaining     int           `json:"tasks_remaining"`
	Streak             int           `json:"streak"`
	Days               []DayProgress `json:"days"`
}

type DayProgress struct {
	DayID                uuid.UUID         `json:"day_id"`
	DayNumber            int               `json:"day_number"`
	Name                 string            `json:"name"`
	IsUnlocked           bool              `json:"is_unlocked"`
	IsCompleted          bool              `json:"is_completed"`
	RequiresVerification bool              `json:"requires_verification"`
	IsVerified           bool              `json:"is_verified"`
	ContentGenerated     bool              `json:"content_generated"`
	GenerationStarted    bool              `json:"generation_started"`
	ProgressRatio        float64           `json:"progress_ratio"`
	TotalConcepts        int               `json:"total_concepts"`
	CompletedConcepts    int               `json:"completed_concepts"`
	TotalSubconcepts     int               `json:"total_subconcepts"`
	CompletedSubconcepts int               `json:"completed_subconcepts"`
	TotalTasks           int               `json:"total_tasks"`
	CompletedTasks       int               `json:"completed_tasks"`
	VerifiedTasks        int               `json:"verified_tasks"`
	UnlockedTasks        int               `json:"unlocked_tasks"`
	Concepts             []ConceptProgress `json:"concepts,omitempty"`
}

type ConceptProgress struct {
	ConceptID     uuid.UUID            `json:"concept_id"`
	Title         string               `json:"title"`
	Order         int                  `json:"order"`
	IsUnlocked    bool                 `json:"is_unlocked"`
	IsCompleted   bool                 `json:"is_completed"`
	ProgressRatio float64              `json:"progress_ratio"`
	Subconcepts   []SubconceptProgress `json:"subconcepts,omitempty"`
}

type SubconceptProgress struct {
	SubconceptID   uuid.UUID `json:"subconcept_id"`
	Title          string    `json:"title"`
	Order          int       `json:"order"`
	IsUnlocked     bool      `json:"is_unlocked"`
	IsCompleted    bool      `json:"is_completed"`
	ProgressRatio  float64   `json:"progress_ratio"`
	TotalTasks     int       `json:"total_tasks"`
	CompletedTasks int       `json:"completed_tasks"`
}
