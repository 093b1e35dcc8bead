package order

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository describes database operations available for ledger orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	ListByAccount(ctx context.Context, accountID string) ([]Order, error)
	GetByAccountOrder(ctx context.Context, accountID, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, accountID, orderID, status, remains string) error
	ListAccountIDs(ctx context.Context) ([]string, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, o *Order) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *gormRepository) ListByAccount(ctx context.Context, accountID string) ([]Order, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var orders []Order
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *gormRepository) GetByAccountOrder(ctx context.Context, accountID, orderID string) (*Order, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var o Order
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND order_id = ?", accountID, orderID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *gormRepository) ListAccountIDs(ctx context.Context) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&Order{}).
		Distinct("account_id").
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, accountID, orderID, status, remains string) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("account_id = ? AND order_id = ?", accountID, orderID).
		Updates(map[string]any{
			"status":  status,
			"remains": remains,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
