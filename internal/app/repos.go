package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/gitguide-backend/internal/data/repos"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type Repos struct {
	Project    repos.ProjectRepo
	Day        repos.DayRepo
	Concept    repos.ConceptRepo
	Subconcept repos.SubconceptRepo
	Task       repos.TaskRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Project:    repos.NewProjectRepo(db, log),
		Day:        repos.NewDayRepo(db, log),
		Concept:    repos.NewConceptRepo(db, log),
		Subconcept: repos.NewSubconceptRepo(db, log),
		Task:       repos.NewTaskRepo(db, log),
	}
}
