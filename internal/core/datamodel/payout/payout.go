package payout

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// ProviderPayout is an append-only ledger row, created exactly once per
// completed booking. The unique index on booking_id backs the at-most-once
// payout guarantee at the store.
type ProviderPayout struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	BookingID  int64      `json:"booking_id" gorm:"column:booking_id;not null;uniqueIndex"`
	ProviderID int64      `json:"provider_id" gorm:"column:provider_id;not null"`
	TransferID string     `json:"transfer_id" gorm:"column:transfer_id;not null"`
	Amount     int64      `json:"amount" gorm:"column:amount;not null"`
	Currency   string     `json:"currency" gorm:"column:currency;not null"`
	Status     string     `json:"status" gorm:"column:status;default:pending"`
	PayoutDate time.Time  `json:"payout_date" gorm:"column:payout_date"`
	SettledAt  *time.Time `json:"settled_at,omitempty" gorm:"column:settled_at"`
	CreatedAt  time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (ProviderPayout) TableName() string {
	return "provider_payouts"
}
