package reconciliation

import (
	"encoding/json"
	"time"
)

const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Alert records a disagreement between the payment processor and the local
// system of record, e.g. a transfer that succeeded but whose booking update
// failed. Alerts stay open until an operator resolves them.
type Alert struct {
	ID         int64           `json:"id" gorm:"primaryKey"`
	BookingID  int64           `json:"booking_id" gorm:"column:booking_id;not null"`
	TransferID *string         `json:"transfer_id,omitempty" gorm:"column:transfer_id"`
	Reason     string          `json:"reason" gorm:"column:reason;not null"`
	Details    json.RawMessage `json:"details,omitempty" gorm:"column:details;type:jsonb"`
	Status     string          `json:"status" gorm:"column:status;default:open"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty" gorm:"column:resolved_at"`
	CreatedAt  time.Time       `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Alert) TableName() string {
	return "reconciliation_alerts"
}
