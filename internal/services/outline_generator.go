package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

type outlineGenerator struct{}

// NewOutlineGenerator returns a generator that needs no model. It builds the
// same fixed outline for every day from the day's theme, so local runs and
// tests have real content to progress through.
func NewOutlineGenerator() progression.ContentGenerator { return outlineGenerator{} }

var outlineSteps = []struct {
	concept string
	subs    [2]string
}{
	{"Read", [2]string{"Locate the relevant code", "Trace one path end to end"}},
	{"Practice", [2]string{"Reproduce it in your repository", "Extend what you built"}},
	{"Reflect", [2]string{"Document what you learned", "Review and push"}},
}

func (outlineGenerator) GenerateDay(_ context.Context, b progression.DayBrief) (progression.DayContent, error) {
	theme := dayTheme(b.DayName)
	repo := strings.TrimSpace(b.ProjectName)
	if repo == "" {
		repo = "the repository"
	}

	content := progression.DayContent{
		Description: fmt.Sprintf("%s in %s.", theme, repo),
	}
	for _, step := range outlineSteps {
		concept := progression.ConceptContent{
			Title:       fmt.Sprintf("%s: %s", step.concept, theme),
			Description: fmt.Sprintf("%s how %s approaches %s.", step.concept, repo, strings.ToLower(theme)),
		}
		for _, sub := range step.subs {
			concept.Subconcepts = append(concept.Subconcepts, progression.SubconceptContent{
				Title: sub,
				Tasks: []progression.TaskContent{
					{Title: sub + " (notes)", Description: fmt.Sprintf("Write notes/day-%02d.md covering: %s.", b.DayNumber, strings.ToLower(sub)), Difficulty: "easy"},
					{Title: sub + " (commit)", Description: fmt.Sprintf("Commit and push a change for day %d that shows: %s.", b.DayNumber, strings.ToLower(sub)), Difficulty: "medium"},
				},
			})
		}
		content.Concepts = append(content.Concepts, concept)
	}
	return content, nil
}

// dayTheme turns "Day 3: Architecture" into "Architecture".
func dayTheme(name string) string {
	if _, after, ok := strings.Cut(name, ":"); ok && strings.TrimSpace(after) != "" {
		return strings.TrimSpace(after)
	}
	if s := strings.TrimSpace(name); s != "" {
		return s
	}
	return "Exploration"
}
