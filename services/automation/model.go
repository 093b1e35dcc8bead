package automation

import "time"

// Task is a standing instruction to keep re-boosting one video until its
// view count reaches Target. It is keyed to the gateway order that seeded
// it and carries the last observation the scheduler acted on.
type Task struct {
	ID          string     `json:"id" gorm:"primaryKey;column:id;type:char(26)"`
	AccountID   string     `json:"account_id" gorm:"column:account_id;type:char(26);index:idx_automation_account"`
	OrderID     string     `json:"order_id" gorm:"column:order_id;type:varchar(64);index:idx_automation_order"`
	Service     string     `json:"service" gorm:"column:service;type:varchar(64)"`
	Link        string     `json:"link" gorm:"column:link;type:text"`
	Quantity    int64      `json:"quantity" gorm:"column:quantity"`
	Target      int64      `json:"target" gorm:"column:target"`
	LastViews   int64      `json:"last_views" gorm:"column:last_views;default:0"`
	LastOrderAt *time.Time `json:"last_order_at" gorm:"column:last_order_at"`
	Active      bool       `json:"active" gorm:"column:active"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Task) TableName() string {
	return "automation_tasks"
}
