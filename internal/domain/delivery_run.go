package domain

import (
	"time"

	"gorm.io/datatypes"
)

// DeliveryRun is the audit record of one sweep invocation. Report holds the
// JSON-encoded delivered/failed lists returned to the caller.
type DeliveryRun struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	Now            time.Time      `json:"now"             gorm:"column:run_at;not null;index"`
	Trigger        string         `json:"trigger"         gorm:"type:varchar(32);not null"`
	DeliveredCount int            `json:"delivered_count" gorm:"not null;default:0"`
	FailedCount    int            `json:"failed_count"    gorm:"not null;default:0"`
	Report         datatypes.JSON `json:"report"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName returns the database table name for DeliveryRun.
func (DeliveryRun) TableName() string { return "delivery_runs" }
