package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type DayRepo interface {
	Create(dbc dbctx.Context, days []*types.Day) ([]*types.Day, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Day, error)
	// LockByID loads the day with a row lock held until dbc's transaction
	// ends. Completions within one day serialize on it.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Day, error)
	GetByProjectAndNumber(dbc dbctx.Context, projectID uuid.UUID, dayNumber int) (*types.Day, error)
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Day, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error

	// ClaimGeneration flips generation_started false->true for a day whose
	// content is not generated yet. It reports whether this call won.
	ClaimGeneration(dbc dbctx.Context, id uuid.UUID) (bool, error)
	// ReleaseGeneration flips generation_started true->false while content is
	// still missing, so a failed dispatch can be retried.
	ReleaseGeneration(dbc dbctx.Context, id uuid.UUID) (bool, error)
	// MarkContentGenerated flips content_generated false->true.
	MarkContentGenerated(dbc dbctx.Context, id uuid.UUID) (bool, error)
	// Unlock flips is_unlocked false->true and reports whether it changed.
	Unlock(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type dayRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDayRepo(db *gorm.DB, baseLog *logger.Logger) DayRepo {
	return &dayRepo{
		db:  db,
		log: baseLog.With("repo", "DayRepo"),
	}
}

func (r *dayRepo) Create(dbc dbctx.Context, days []*types.Day) ([]*types.Day, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(days) == 0 {
		return []*types.Day{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&days).Error; err != nil {
		return nil, err
	}
	return days, nil
}

func (r *dayRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Day, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.Day
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

func (r *dayRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Day, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Day
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *dayRepo) GetByProjectAndNumber(dbc dbctx.Context, projectID uuid.UUID, dayNumber int) (*types.Day, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Day
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND day_number = ?", projectID, dayNumber).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *dayRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Day, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Day
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("day_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dayRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Day{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *dayRepo) ClaimGeneration(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return r.compareAndSet(dbc, id,
		"generation_started = ? AND content_generated = ?", []interface{}{false, false},
		map[string]interface{}{"generation_started": true},
	)
}

func (r *dayRepo) ReleaseGeneration(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return r.compareAndSet(dbc, id,
		"generation_started = ? AND content_generated = ?", []interface{}{true, false},
		map[string]interface{}{"generation_started": false},
	)
}

func (r *dayRepo) MarkContentGenerated(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return r.compareAndSet(dbc, id,
		"content_generated = ?", []interface{}{false},
		map[string]interface{}{"content_generated": true},
	)
}

func (r *dayRepo) Unlock(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return r.compareAndSet(dbc, id,
		"is_unlocked = ?", []interface{}{false},
		map[string]interface{}{"is_unlocked": true},
	)
}

// compareAndSet is a single-row conditional update; RowsAffected tells the
// caller whether the guarded old value was still in place.
func (r *dayRepo) compareAndSet(dbc dbctx.Context, id uuid.UUID, guard string, guardArgs []interface{}, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates["updated_at"] = time.Now().UTC()
	args := append([]interface{}{id}, guardArgs...)
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Day{}).
		Where("id = ? AND "+guard, args...).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
