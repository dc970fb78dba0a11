package progression

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrTaskOwner = errors.New("task must belong to exactly one of subconcept or concept")

// Task is the leaf of the hierarchy. Regular-day tasks hang off a Subconcept;
// Day 0 tasks hang directly off a Concept and carry a VerificationKind.
type Task struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	DayID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"day_id"`
	SubconceptID *uuid.UUID `gorm:"type:uuid;index" json:"subconcept_id,omitempty"`
	ConceptID    *uuid.UUID `gorm:"type:uuid;index" json:"concept_id,omitempty"`
	SortOrder    int        `gorm:"column:sort_order;not null" json:"order"`

	Title        string         `gorm:"column:title;not null" json:"title"`
	Description  string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Difficulty   string         `gorm:"column:difficulty" json:"difficulty,omitempty"`
	FilesToStudy datatypes.JSON `gorm:"column:files_to_study" json:"files_to_study,omitempty"`

	IsUnlocked  bool       `gorm:"column:is_unlocked;not null;default:false" json:"is_unlocked"`
	IsCompleted bool       `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	VerificationKind *VerificationKind `gorm:"column:verification_type" json:"verification_type,omitempty"`
	IsVerified       bool              `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	VerifiedAt       *time.Time        `gorm:"column:verified_at" json:"verified_at,omitempty"`
	VerificationData datatypes.JSON    `gorm:"column:verification_data" json:"verification_data,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Task) TableName() string { return "task" }

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if (t.SubconceptID == nil) == (t.ConceptID == nil) {
		return ErrTaskOwner
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// RequiresVerification reports whether completion alone is not enough.
func (t *Task) RequiresVerification() bool {
	return t != nil && t.VerificationKind != nil
}

// Done is the completion predicate used for progress: verification tasks
// count once verified, every other task once completed.
func (t *Task) Done() bool {
	if t == nil {
		return false
	}
	if t.RequiresVerification() {
		return t.IsVerified
	}
	return t.IsCompleted
}
