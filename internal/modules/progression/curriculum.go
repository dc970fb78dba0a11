package progression

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/gitguide-backend/internal/domain"
)

//go:embed curriculum.yaml
var defaultCurriculumYAML []byte

// Curriculum is the fixed part of every project: the fifteen day headers and
// the ordered Day 0 setup steps.
type Curriculum struct {
	Days         []CurriculumDay `yaml:"days"`
	Verification []SetupStep     `yaml:"verification"`
}

type CurriculumDay struct {
	Number      int    `yaml:"number"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SetupStep struct {
	Kind    types.VerificationKind `yaml:"kind"`
	Concept TextBlock              `yaml:"concept"`
	Task    TextBlock              `yaml:"task"`
}

type TextBlock struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

func DefaultCurriculum() (*Curriculum, error) {
	return LoadCurriculum(defaultCurriculumYAML)
}

func LoadCurriculum(raw []byte) (*Curriculum, error) {
	var c Curriculum
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Curriculum) validate() error {
	if len(c.Days) != types.TotalDayCount {
		return fmt.Errorf("curriculum: want %d days, got %d", types.TotalDayCount, len(c.Days))
	}
	for i, d := range c.Days {
		if d.Number != i {
			return fmt.Errorf("curriculum: day at position %d has number %d", i, d.Number)
		}
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("curriculum: day %d has no name", d.Number)
		}
	}
	if len(c.Verification) != len(types.VerificationSequence) {
		return fmt.Errorf("curriculum: want %d setup steps, got %d", len(types.VerificationSequence), len(c.Verification))
	}
	for i, step := range c.Verification {
		if step.Kind != types.VerificationSequence[i] {
			return fmt.Errorf("curriculum: setup step %d is %q, want %q", i, step.Kind, types.VerificationSequence[i])
		}
		if strings.TrimSpace(step.Concept.Title) == "" || strings.TrimSpace(step.Task.Title) == "" {
			return fmt.Errorf("curriculum: setup step %q needs concept and task titles", step.Kind)
		}
	}
	return nil
}

func render(text, project, suffix string) string {
	return strings.NewReplacer("{{project}}", project, "{{suffix}}", suffix).Replace(text)
}
