package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/gitguide-backend/internal/data/repos/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type ProjectRepo = progression.ProjectRepo
type DayRepo = progression.DayRepo
type ConceptRepo = progression.ConceptRepo
type SubconceptRepo = progression.SubconceptRepo
type TaskRepo = progression.TaskRepo

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return progression.NewProjectRepo(db, baseLog)
}

func NewDayRepo(db *gorm.DB, baseLog *logger.Logger) DayRepo {
	return progression.NewDayRepo(db, baseLog)
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return progression.NewConceptRepo(db, baseLog)
}

func NewSubconceptRepo(db *gorm.DB, baseLog *logger.Logger) SubconceptRepo {
	return progression.NewSubconceptRepo(db, baseLog)
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return progression.NewTaskRepo(db, baseLog)
}
