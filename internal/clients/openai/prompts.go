package openai

import (
	"fmt"
	"strings"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

const daySystemPrompt = `You design one day of a hands-on, 14-day course that teaches a learner an existing GitHub repository by working in their own practice repository.

Return ONLY a JSON object of this shape:
{
  "description": "2-3 sentence overview of the day",
  "concepts": [
    {
      "title": "...",
      "description": "4-6 sentences teaching the idea before any task",
      "subconcepts": [
        {
          "title": "...",
          "description": "2-3 sentences on the specific angle",
          "tasks": [
            {
              "title": "...",
              "description": "step-by-step instructions naming files to create or change and what to commit",
              "difficulty": "easy | medium | hard",
              "files_to_study": ["path/in/the/repository"]
            }
          ]
        }
      ]
    }
  ]
}

Rules:
- 3-6 concepts, each with 2-4 subconcepts, each with 2-4 tasks.
- Every concept, subconcept and task needs a non-empty title.
- Every task must produce a change the learner commits and pushes, so it can be checked on GitHub.
- Never include code in task descriptions; describe what to build, not how.
- Build on earlier days; difficulty rises through the day.`

func dayUserPrompt(b progression.DayBrief) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\n", b.RepoURL)
	fmt.Fprintf(&sb, "Project: %s\n", b.ProjectName)
	if s := strings.TrimSpace(b.SkillLevel); s != "" {
		fmt.Fprintf(&sb, "Learner skill level: %s\n", s)
	}
	if s := strings.TrimSpace(b.Domain); s != "" {
		fmt.Fprintf(&sb, "Domain: %s\n", s)
	}
	fmt.Fprintf(&sb, "\nGenerate %s (day %d of 14).\n", b.DayName, b.DayNumber)
	if s := strings.TrimSpace(b.DayDescription); s != "" {
		fmt.Fprintf(&sb, "Theme: %s\n", s)
	}
	return sb.String()
}
