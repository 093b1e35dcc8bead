package account

import (
	"time"
)

type Account struct {
	ID           string    `gorm:"column:id;primaryKey;type:char(26)"`
	Username     string    `gorm:"column:username;uniqueIndex;type:varchar(64);not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	// APIKeyEnc holds the reseller API key, AES-GCM encrypted at rest.
	APIKeyEnc string    `gorm:"column:api_key_enc;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
