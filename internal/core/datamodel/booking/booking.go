package booking

import (
	"time"
)

// Booking statuses. Terminal states are completed, declined and cancelled;
// a booking row is never deleted.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusDeclined   = "declined"
	StatusCancelled  = "cancelled"
)

// Payment statuses. Funds move pending → authorized → funds_held_in_escrow
// at booking creation, then to payout_completed or refunded here.
const (
	PaymentStatusPending         = "pending"
	PaymentStatusAuthorized      = "authorized"
	PaymentStatusFundsHeld       = "funds_held_in_escrow"
	PaymentStatusPayoutCompleted = "payout_completed"
	PaymentStatusRefunded        = "refunded"
)

// Booking is the central row of the payment lifecycle. All monetary fields
// are integer minor units (pence). The split invariant
// amount_held_for_provider + platform_fee_held == total_amount holds from
// authorization onwards.
type Booking struct {
	ID                    int64      `json:"id" gorm:"primaryKey"`
	CustomerID            int64      `json:"customer_id" gorm:"column:customer_id;not null"`
	ProviderID            int64      `json:"provider_id" gorm:"column:provider_id;not null"`
	ServiceID             int64      `json:"service_id" gorm:"column:service_id;not null"`
	Status                string     `json:"status" gorm:"column:status;default:pending"`
	PaymentStatus         string     `json:"payment_status" gorm:"column:payment_status;default:pending"`
	TotalAmount           int64      `json:"total_amount" gorm:"column:total_amount;not null"`
	AmountHeldForProvider int64      `json:"amount_held_for_provider" gorm:"column:amount_held_for_provider"`
	PlatformFeeHeld       int64      `json:"platform_fee_held" gorm:"column:platform_fee_held"`
	ProviderPayoutAmount  *int64     `json:"provider_payout_amount,omitempty" gorm:"column:provider_payout_amount"`
	PlatformFeeCollected  *int64     `json:"platform_fee_collected,omitempty" gorm:"column:platform_fee_collected"`
	PaymentIntentID       string     `json:"-" gorm:"column:payment_intent_id"`
	ProviderTransferID    *string    `json:"provider_transfer_id,omitempty" gorm:"column:provider_transfer_id"`
	ProviderPaidAt        *time.Time `json:"provider_paid_at,omitempty" gorm:"column:provider_paid_at"`
	DeclinedReason        *string    `json:"declined_reason,omitempty" gorm:"column:declined_reason"`
	RespondBy             *time.Time `json:"respond_by,omitempty" gorm:"column:respond_by"`
	CreatedAt             time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt             time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Booking) TableName() string {
	return "bookings"
}

// CanComplete reports whether the booking status permits completion.
func (b *Booking) CanComplete() bool {
	return b.Status == StatusConfirmed || b.Status == StatusInProgress
}

// CanDecline reports whether the booking status permits a provider decline.
func (b *Booking) CanDecline() bool {
	return b.Status == StatusPending
}

// FundsHeld reports whether customer funds are escrowed and payable.
func (b *Booking) FundsHeld() bool {
	return b.PaymentStatus == PaymentStatusFundsHeld
}

// AlreadyPaidOut is the idempotency marker: a set provider_paid_at means a
// transfer has been recorded and completion must not call the processor again.
func (b *Booking) AlreadyPaidOut() bool {
	return b.ProviderPaidAt != nil
}

func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case StatusCompleted, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}
