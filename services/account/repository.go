package account

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository describes database operations available for accounts.
type Repository interface {
	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	UpdateAPIKey(ctx context.Context, id, apiKeyEnc string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, acct *Account) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(acct).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var acct Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &acct, nil
}

func (r *gormRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var acct Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &acct, nil
}

func (r *gormRepository) List(ctx context.Context) ([]Account, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var accts []Account
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&accts).Error; err != nil {
		return nil, err
	}
	return accts, nil
}

func (r *gormRepository) UpdateAPIKey(ctx context.Context, id, apiKeyEnc string) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ?", id).
		Update("api_key_enc", apiKeyEnc)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
