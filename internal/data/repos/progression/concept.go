package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type ConceptRepo interface {
	Create(dbc dbctx.Context, concepts []*types.Concept) ([]*types.Concept, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Concept, error)
	ListByDayID(dbc dbctx.Context, dayID uuid.UUID) ([]*types.Concept, error)
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Concept, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UnlockByDayID(dbc dbctx.Context, dayID uuid.UUID) error
	DeleteByDayID(dbc dbctx.Context, dayID uuid.UUID) error
}

type conceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return &conceptRepo{
		db:  db,
		log: baseLog.With("repo", "ConceptRepo"),
	}
}

func (r *conceptRepo) Create(dbc dbctx.Context, concepts []*types.Concept) ([]*types.Concept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(concepts) == 0 {
		return []*types.Concept{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&concepts).Error; err != nil {
		return nil, err
	}
	return concepts, nil
}

func (r *conceptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Concept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.Concept
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *conceptRepo) ListByDayID(dbc dbctx.Context, dayID uuid.UUID) ([]*types.Concept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Concept
	if err := transaction.WithContext(dbc.Ctx).
		Where("day_id = ?", dayID).
		Order("sort_order ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conceptRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Concept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Concept
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("sort_order ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conceptRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Concept{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *conceptRepo) UnlockByDayID(dbc dbctx.Context, dayID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Concept{}).
		Where("day_id = ? AND is_unlocked = ?", dayID, false).
		Updates(map[string]interface{}{
			"is_unlocked": true,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *conceptRepo) DeleteByDayID(dbc dbctx.Context, dayID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("day_id = ?", dayID).
		Delete(&types.Concept{}).Error
}
