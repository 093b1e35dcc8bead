package automation

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository describes database operations available for automation tasks.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Update(ctx context.Context, t *Task) error
	ListByAccount(ctx context.Context, accountID string) ([]Task, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]Task, error)
	FindActiveByOrder(ctx context.Context, accountID, orderID string) (*Task, error)
	DeleteByOrder(ctx context.Context, accountID, orderID string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, t *Task) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *gormRepository) Update(ctx context.Context, t *Task) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *gormRepository) ListByAccount(ctx context.Context, accountID string) ([]Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var tasks []Task
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var tasks []Task
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND active = ?", accountID, true).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormRepository) FindActiveByOrder(ctx context.Context, accountID, orderID string) (*Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var t Task
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND order_id = ? AND active = ?", accountID, orderID, true).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) DeleteByOrder(ctx context.Context, accountID, orderID string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Where("account_id = ? AND order_id = ?", accountID, orderID).
		Delete(&Task{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
