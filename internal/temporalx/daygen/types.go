package daygen

import (
	"fmt"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

const (
	WorkflowName     = "day_generation"
	ActivityGenerate = "day_generation_generate"
	ActivityApply    = "day_generation_apply"
	ActivityRelease  = "day_generation_release"
)

type ApplyInput struct {
	Request progression.GenerationRequest `json:"request"`
	Content progression.DayContent        `json:"content"`
}

type Result struct {
	DayNumber        int  `json:"day_number"`
	Applied          bool `json:"applied"`
	AlreadyGenerated bool `json:"already_generated"`
	Concepts         int  `json:"concepts"`
	Subconcepts      int  `json:"subconcepts"`
	Tasks            int  `json:"tasks"`
}

// WorkflowID keys a day's generation so a second dispatch for the same day
// finds the running execution.
func WorkflowID(req progression.GenerationRequest) string {
	return fmt.Sprintf("daygen:%s:%d", req.ProjectID, req.DayNumber)
}
