package db

import (
	types "github.com/yungbote/gitguide-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Project{},
		&types.Day{},
		&types.Concept{},
		&types.Subconcept{},
		&types.Task{},
	)
}
