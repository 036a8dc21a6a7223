package notification

import (
	"time"
)

const (
	TypeServiceCompleted = "service_completed"
	TypePaymentReleased  = "payment_released"
	TypeBookingDeclined  = "booking_declined"
)

// Notification rows are written fire-and-forget by the dispatcher; a failed
// insert is logged and dropped, never surfaced to the payment flow.
type Notification struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	UserID    int64      `json:"user_id" gorm:"column:user_id;not null"`
	BookingID int64      `json:"booking_id" gorm:"column:booking_id"`
	Type      string     `json:"type" gorm:"column:type;not null"`
	Title     string     `json:"title" gorm:"column:title;not null"`
	Body      string     `json:"body" gorm:"column:body"`
	ReadAt    *time.Time `json:"read_at,omitempty" gorm:"column:read_at"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Notification) TableName() string {
	return "notifications"
}
