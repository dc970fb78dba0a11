package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Concept struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	DayID     uuid.UUID `gorm:"type:uuid;not null;index:idx_concept_day_order,priority:1" json:"day_id"`
	SortOrder int       `gorm:"column:sort_order;not null;index:idx_concept_day_order,priority:2" json:"order"`

	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description,omitempty"`

	IsUnlocked    bool    `gorm:"column:is_unlocked;not null;default:false" json:"is_unlocked"`
	IsCompleted   bool    `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	ProgressRatio float64 `gorm:"column:progress_ratio;type:double precision;not null;default:0" json:"progress_ratio"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Concept) TableName() string { return "concept" }

func (c *Concept) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
