package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type TaskRepo interface {
	Create(dbc dbctx.Context, tasks []*types.Task) ([]*types.Task, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error)
	ListBySubconceptID(dbc dbctx.Context, subconceptID uuid.UUID) ([]*types.Task, error)
	ListBySubconceptIDs(dbc dbctx.Context, subconceptIDs []uuid.UUID) ([]*types.Task, error)
	// ListByConceptID returns tasks attached directly to the concept.
	ListByConceptID(dbc dbctx.Context, conceptID uuid.UUID) ([]*types.Task, error)
	ListByDayID(dbc dbctx.Context, dayID uuid.UUID) ([]*types.Task, error)
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Task, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// ApplyFrontier unlocks exactly unlockIDs among the day's tasks and locks
	// every other task of that day.
	ApplyFrontier(dbc dbctx.Context, dayID uuid.UUID, unlockIDs []uuid.UUID) error
	DeleteBySubconceptIDs(dbc dbctx.Context, subconceptIDs []uuid.UUID) error
	DeleteByConceptID(dbc dbctx.Context, conceptID uuid.UUID) error
	DeleteByDayID(dbc dbctx.Context, dayID uuid.UUID) error
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{
		db:  db,
		log: baseLog.With("repo", "TaskRepo"),
	}
}

const taskOrder = "sort_order ASC, id ASC"

func (r *taskRepo) Create(dbc dbctx.Context, tasks []*types.Task) ([]*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tasks) == 0 {
		return []*types.Task{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.Task
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

func (r *taskRepo) ListBySubconceptID(dbc dbctx.Context, subconceptID uuid.UUID) ([]*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Task
	if err := transaction.WithContext(dbc.Ctx).
		Where("subconcept_id = ?", subconceptID).
		Order(taskOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepo) ListBySubconceptIDs(dbc dbctx.Context, subconceptIDs []uuid.UUID) ([]*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Task
	if len(subconceptIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("subconcept_id IN ?", subconceptIDs).
		Order(taskOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepo) ListByConceptID(dbc dbctx.Context, conceptID uuid.UUID) ([]*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Task
	if err := transaction.WithContext(dbc.Ctx).
		Where("concept_id = ?", conceptID).
		Order(taskOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepo) ListByDayID(dbc dbctx.Context, dayID uuid.UUID) ([]*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Task
	if err := transaction.WithContext(dbc.Ctx).
		Where("day_id = ?", dayID).
		Order(taskOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Task
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order(taskOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Task{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *taskRepo) ApplyFrontier(dbc dbctx.Context, dayID uuid.UUID, unlockIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	if len(unlockIDs) > 0 {
		if err := transaction.WithContext(dbc.Ctx).
			Model(&types.Task{}).
			Where("day_id = ? AND id IN ? AND is_unlocked = ?", dayID, unlockIDs, false).
			Updates(map[string]interface{}{"is_unlocked": true, "updated_at": now}).Error; err != nil {
			return err
		}
	}
	lock := transaction.WithContext(dbc.Ctx).
		Model(&types.Task{}).
		Where("day_id = ? AND is_unlocked = ?", dayID, true)
	if len(unlockIDs) > 0 {
		lock = lock.Where("id NOT IN ?", unlockIDs)
	}
	return lock.Updates(map[string]interface{}{"is_unlocked": false, "updated_at": now}).Error
}

func (r *taskRepo) DeleteBySubconceptIDs(dbc dbctx.Context, subconceptIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(subconceptIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("subconcept_id IN ?", subconceptIDs).
		Delete(&types.Task{}).Error
}

func (r *taskRepo) DeleteByConceptID(dbc dbctx.Context, conceptID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("concept_id = ?", conceptID).
		Delete(&types.Task{}).Error
}

func (r *taskRepo) DeleteByDayID(dbc dbctx.Context, dayID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("day_id = ?", dayID).
		Delete(&types.Task{}).Error
}
