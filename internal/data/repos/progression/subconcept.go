package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type SubconceptRepo interface {
	Create(dbc dbctx.Context, subconcepts []*types.Subconcept) ([]*types.Subconcept, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Subconcept, error)
	ListByConceptID(dbc dbctx.Context, conceptID uuid.UUID) ([]*types.Subconcept, error)
	ListByDayID(dbc dbctx.Context, dayID uuid.UUID) ([]*types.Subconcept, error)
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Subconcept, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UnlockByDayID(dbc dbctx.Context, dayID uuid.UUID) error
	UnlockByConceptID(dbc dbctx.Context, conceptID uuid.UUID) error
	DeleteByConceptID(dbc dbctx.Context, conceptID uuid.UUID) error
	DeleteByDayID(dbc dbctx.Context, dayID uuid.UUID) error
}

type subconceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubconceptRepo(db *gorm.DB, baseLog *logger.Logger) SubconceptRepo {
	return &subconceptRepo{
		db:  db,
		log: baseLog.With("repo", "SubconceptRepo"),
	}
}

func (r *subconceptRepo) Create(dbc dbctx.Context, subconcepts []*types.Subconcept) ([]*types.Subconcept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(subconcepts) == 0 {
		return []*types.Subconcept{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&subconcepts).Error; err != nil {
		return nil, err
	}
	return subconcepts, nil
}

func (r *subconceptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Subconcept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.Subconcept
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

func (r *subconceptRepo) ListByConceptID(dbc dbctx.Context, conceptID uuid.UUID) ([]*types.Subconcept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Subconcept
	if err := transaction.WithContext(dbc.Ctx).
		Where("concept_id = ?", conceptID).
		Order("sort_order ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subconceptRepo) ListByDayID(dbc dbctx.Context, dayID uuid.UUID) ([]*types.Subconcept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Subconcept
	if err := transaction.WithContext(dbc.Ctx).
		Where("day_id = ?", dayID).
		Order("sort_order ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subconceptRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Subconcept, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Subconcept
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("sort_order ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subconceptRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Subconcept{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *subconceptRepo) UnlockByDayID(dbc dbctx.Context, dayID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Subconcept{}).
		Where("day_id = ? AND is_unlocked = ?", dayID, false).
		Updates(map[string]interface{}{
			"is_unlocked": true,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *subconceptRepo) UnlockByConceptID(dbc dbctx.Context, conceptID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Subconcept{}).
		Where("concept_id = ? AND is_unlocked = ?", conceptID, false).
		Updates(map[string]interface{}{
			"is_unlocked": true,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *subconceptRepo) DeleteByConceptID(dbc dbctx.Context, conceptID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("concept_id = ?", conceptID).
		Delete(&types.Subconcept{}).Error
}

func (r *subconceptRepo) DeleteByDayID(dbc dbctx.Context, dayID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("day_id = ?", dayID).
		Delete(&types.Subconcept{}).Error
}
