package order

import (
	"time"

	"gorm.io/datatypes"
)

// Order placement sources.
const (
	SourceManual     = "manual"
	SourceAutomation = "automation"
)

// Order is one ledger entry: an order accepted by the upstream reseller.
// Rows are never deleted; status and remains are only refreshed by explicit
// status queries.
type Order struct {
	ID        string `json:"id" gorm:"column:id;primaryKey;type:char(26)"`
	AccountID string `json:"account_id" gorm:"column:account_id;uniqueIndex:idx_account_order;not null"`
	// OrderID is the upstream reseller order id.
	OrderID   string         `json:"order_id" gorm:"column:order_id;uniqueIndex:idx_account_order;not null"`
	Service   string         `json:"service" gorm:"column:service;not null"`
	Link      string         `json:"link" gorm:"column:link;not null"`
	Quantity  int64          `json:"quantity" gorm:"column:quantity;not null"`
	Status    string         `json:"status" gorm:"column:status;type:varchar(32);default:'Pending'"`
	Remains   string         `json:"remains" gorm:"column:remains;type:varchar(32)"`
	Source    string         `json:"source" gorm:"column:source;type:varchar(16);default:'manual'"`
	Metadata  datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}
