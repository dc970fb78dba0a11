package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// FirstDayNumber is the verification day every project starts on.
	FirstDayNumber = 0
	// LastDayNumber is the final regular day; completing it ends the project.
	LastDayNumber = 14
	// TotalDayCount counts Day 0 plus Days 1-14.
	TotalDayCount = LastDayNumber + 1
)

type Project struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index:idx_project_user_repo,unique,priority:1" json:"user_id"`
	RepoURL string    `gorm:"column:repo_url;not null;index:idx_project_user_repo,unique,priority:2" json:"repo_url"`

	Name       string `gorm:"column:name;not null" json:"name"`
	SkillLevel string `gorm:"column:skill_level" json:"skill_level,omitempty"`
	Domain     string `gorm:"column:domain" json:"domain,omitempty"`

	CurrentDay        int     `gorm:"column:current_day;not null;default:0" json:"current_day"`
	CompletedDayCount int     `gorm:"column:completed_day_count;not null;default:0" json:"completed_day_count"`
	TotalDayCount     int     `gorm:"column:total_day_count;not null" json:"total_day_count"`
	ProgressRatio     float64 `gorm:"column:progress_ratio;type:double precision;not null;default:0" json:"progress_ratio"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Project) TableName() string { return "project" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.TotalDayCount == 0 {
		p.TotalDayCount = TotalDayCount
	}
	return nil
}
