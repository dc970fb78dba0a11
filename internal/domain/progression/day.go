package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Day struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_day_project_number,unique,priority:1" json:"project_id"`
	DayNumber int       `gorm:"column:day_number;not null;index:idx_day_project_number,unique,priority:2" json:"day_number"`

	Name        string `gorm:"column:name;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description,omitempty"`

	IsUnlocked           bool   `gorm:"column:is_unlocked;not null;default:false" json:"is_unlocked"`
	IsCompleted          bool   `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	RequiresVerification bool   `gorm:"column:requires_verification;not null;default:false" json:"requires_verification"`
	IsVerified           bool   `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	VerificationRepoURL  string `gorm:"column:verification_repo_url" json:"verification_repo_url,omitempty"`

	ContentGenerated  bool    `gorm:"column:content_generated;not null;default:false" json:"content_generated"`
	GenerationStarted bool    `gorm:"column:generation_started;not null;default:false" json:"generation_started"`
	ProgressRatio     float64 `gorm:"column:progress_ratio;type:double precision;not null;default:0" json:"progress_ratio"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Day) TableName() string { return "day" }

func (d *Day) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// IsVerificationDay reports whether the day is gated on verified tasks.
func (d *Day) IsVerificationDay() bool {
	return d != nil && (d.RequiresVerification || d.DayNumber == FirstDayNumber)
}
