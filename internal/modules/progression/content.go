package progression

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

// DayContent is what a generator produces for one regular day.
type DayContent struct {
	Description string           `json:"description,omitempty"`
	Concepts    []ConceptContent `json:"concepts"`
}

type ConceptContent struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Subconcepts []SubconceptContent `json:"subconcepts"`
}

type SubconceptContent struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Tasks       []TaskContent `json:"tasks"`
}

type TaskContent struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	FilesToStudy []string `json:"files_to_study,omitempty"`
}

// Validate rejects content that would leave a node without children, since
// childless nodes can never complete.
func (c DayContent) Validate() error {
	if len(c.Concepts) == 0 {
		return invalid("day content has no concepts")
	}
	for i, concept := range c.Concepts {
		if err := concept.validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (c ConceptContent) validate(i int) error {
	if strings.TrimSpace(c.Title) == "" {
		return invalid("concept %d has no title", i)
	}
	if len(c.Subconcepts) == 0 {
		return invalid("concept %q has no subconcepts", c.Title)
	}
	for j, sub := range c.Subconcepts {
		if err := sub.validate(j); err != nil {
			return err
		}
	}
	return nil
}

func (s SubconceptContent) validate(i int) error {
	if strings.TrimSpace(s.Title) == "" {
		return invalid("subconcept %d has no title", i)
	}
	if len(s.Tasks) == 0 {
		return invalid("subconcept %q has no tasks", s.Title)
	}
	for k, t := range s.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			return invalid("task %d of subconcept %q has no title", k, s.Title)
		}
	}
	return nil
}

// ApplyGeneratedContent is the generator callback. It stores the day's
// hierarchy and flips content_generated in one transaction. Content that
// arrives for an already generated day is ignored, so a redelivered
// callback is harmless. If the day is already unlocked its new rows join
// the frontier immediately.
func (e *Engine) ApplyGeneratedContent(ctx context.Context, projectID uuid.UUID, dayNumber int, content DayContent) (res *ApplyResult, err error) {
	ctx, span := e.startSpan(ctx, "ApplyGeneratedContent", projectID, attribute.Int("day_number", dayNumber))
	defer func() { finishSpan(span, err) }()

	if err := validDayNumber(dayNumber); err != nil {
		return nil, err
	}
	if dayNumber == types.FirstDayNumber {
		return nil, invalid("day 0 content is fixed")
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}

	res = &ApplyResult{DayNumber: dayNumber}
	err = e.inTx(ctx, "ApplyGeneratedContent", func(dbc dbctx.Context) error {
		day, err := e.dayFor(dbc, projectID, dayNumber)
		if err != nil {
			return err
		}
		if day.ContentGenerated {
			res.AlreadyGenerated = true
			return nil
		}
		// Drop anything a failed earlier attempt left behind.
		if err := e.deleteDayDescendants(dbc, day.ID); err != nil {
			return err
		}
		concepts, subs, tasks, err := e.insertConcepts(dbc, day, 0, content.Concepts)
		if err != nil {
			return err
		}
		res.Concepts, res.Subconcepts, res.Tasks = concepts, subs, tasks

		won, err := e.days.MarkContentGenerated(dbc, day.ID)
		if err != nil {
			return err
		}
		if !won {
			res.AlreadyGenerated = true
			return errContentRace
		}
		updates := map[string]interface{}{"generation_started": false}
		if strings.TrimSpace(content.Description) != "" {
			updates["description"] = content.Description
		}
		if err := e.days.UpdateFields(dbc, day.ID, updates); err != nil {
			return err
		}
		day.ContentGenerated = true
		return e.activateContent(dbc, day)
	})
	if errors.Is(err, errContentRace) {
		return &ApplyResult{DayNumber: dayNumber, AlreadyGenerated: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if res.AlreadyGenerated {
		e.log.Info("generated content ignored, day already has content", "project_id", projectID, "day_number", dayNumber)
		return res, nil
	}
	res.Applied = true
	e.log.Info("day content applied",
		"project_id", projectID,
		"day_number", dayNumber,
		"concepts", res.Concepts,
		"subconcepts", res.Subconcepts,
		"tasks", res.Tasks,
	)
	e.publish(ctx, ProgressEvent{Type: EventContentGenerated, ProjectID: projectID, DayNumber: intPtr(dayNumber)})
	return res, nil
}

// errContentRace rolls back an insert that lost the content_generated
// compare-and-set.
var errContentRace = errors.New("content already generated by a concurrent writer")

// activateContent unlocks new rows of an unlocked day and recomputes its
// ancestors.
func (e *Engine) activateContent(dbc dbctx.Context, day *types.Day) error {
	if day.IsUnlocked {
		if err := e.concepts.UnlockByDayID(dbc, day.ID); err != nil {
			return err
		}
		if err := e.subconcepts.UnlockByDayID(dbc, day.ID); err != nil {
			return err
		}
		if err := e.applyFrontier(dbc, day); err != nil {
			return err
		}
	}
	return e.settleDayTree(dbc, day)
}

// settleDayTree recomputes a whole day bottom-up plus the project ratio.
func (e *Engine) settleDayTree(dbc dbctx.Context, day *types.Day) error {
	res := CascadeResult{ProgressByLevel: map[Level]float64{}}
	subs, err := e.subconcepts.ListByDayID(dbc, day.ID)
	if err != nil {
		return err
	}
	for _, s := range subs {
		tasks, err := e.tasks.ListBySubconceptID(dbc, s.ID)
		if err != nil {
			return err
		}
		updates, _ := settle(&s.IsCompleted, &s.ProgressRatio, countDone(tasks), len(tasks))
		if err := e.subconcepts.UpdateFields(dbc, s.ID, updates); err != nil {
			return err
		}
	}
	concepts, err := e.concepts.ListByDayID(dbc, day.ID)
	if err != nil {
		return err
	}
	for _, c := range concepts {
		if _, err := e.settleConcept(dbc, c.ID, &res); err != nil {
			return err
		}
	}
	if _, err := e.settleDay(dbc, day.ID, &res); err != nil {
		return err
	}
	return e.settleProject(dbc, day.ProjectID, &res)
}

func (e *Engine) deleteDayDescendants(dbc dbctx.Context, dayID uuid.UUID) error {
	if err := e.tasks.DeleteByDayID(dbc, dayID); err != nil {
		return err
	}
	if err := e.subconcepts.DeleteByDayID(dbc, dayID); err != nil {
		return err
	}
	return e.concepts.DeleteByDayID(dbc, dayID)
}

// insertConcepts creates concepts starting at sort order firstOrder with all
// of their descendants, everything locked.
func (e *Engine) insertConcepts(dbc dbctx.Context, day *types.Day, firstOrder int, in []ConceptContent) (int, int, int, error) {
	var nSubs, nTasks int
	for i, cc := range in {
		concept := &types.Concept{
			ProjectID:   day.ProjectID,
			DayID:       day.ID,
			SortOrder:   firstOrder + i + 1,
			Title:       strings.TrimSpace(cc.Title),
			Description: cc.Description,
		}
		if _, err := e.concepts.Create(dbc, []*types.Concept{concept}); err != nil {
			return 0, 0, 0, err
		}
		subs, tasks, err := e.insertSubconcepts(dbc, concept, cc.Subconcepts)
		if err != nil {
			return 0, 0, 0, err
		}
		nSubs += subs
		nTasks += tasks
	}
	return len(in), nSubs, nTasks, nil
}

func (e *Engine) insertSubconcepts(dbc dbctx.Context, concept *types.Concept, in []SubconceptContent) (int, int, error) {
	nTasks := 0
	for i, sc := range in {
		sub := &types.Subconcept{
			ProjectID:   concept.ProjectID,
			DayID:       concept.DayID,
			ConceptID:   concept.ID,
			SortOrder:   i + 1,
			Title:       strings.TrimSpace(sc.Title),
			Description: sc.Description,
		}
		if _, err := e.subconcepts.Create(dbc, []*types.Subconcept{sub}); err != nil {
			return 0, 0, err
		}
		n, err := e.insertTasks(dbc, sub, sc.Tasks)
		if err != nil {
			return 0, 0, err
		}
		nTasks += n
	}
	return len(in), nTasks, nil
}

func (e *Engine) insertTasks(dbc dbctx.Context, sub *types.Subconcept, in []TaskContent) (int, error) {
	rows := make([]*types.Task, 0, len(in))
	for i, tc := range in {
		files, err := json.Marshal(nonNilStrings(tc.FilesToStudy))
		if err != nil {
			return 0, err
		}
		subID := sub.ID
		rows = append(rows, &types.Task{
			ProjectID:    sub.ProjectID,
			DayID:        sub.DayID,
			SubconceptID: &subID,
			SortOrder:    i + 1,
			Title:        strings.TrimSpace(tc.Title),
			Description:  tc.Description,
			Difficulty:   tc.Difficulty,
			FilesToStudy: datatypes.JSON(files),
		})
	}
	if _, err := e.tasks.Create(dbc, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
