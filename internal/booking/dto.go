package booking

import (
	"time"

	apperrors "github.com/handyhub/booking-payments/internal"
	"github.com/handyhub/booking-payments/internal/core/common/validation"
	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/booking"
)

// DeclineBookingDTO is the provider's decline request body.
type DeclineBookingDTO struct {
	Reason string `json:"reason"`
}

func (d DeclineBookingDTO) Validate() *apperrors.AppError {
	return validation.ValidateDeclineReason(d.Reason)
}

// CompletionResult is the response of a completion, first call or replay.
// Replays return the amounts recorded by the original call.
type CompletionResult struct {
	BookingID      int64     `json:"booking_id"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	TransferID     string    `json:"transfer_id"`
	ProviderPayout int64     `json:"provider_payout"`
	PlatformFee    int64     `json:"platform_fee"`
	Currency       string    `json:"currency"`
	PaidAt         time.Time `json:"paid_at"`
}

type DeclineResult struct {
	BookingID     int64  `json:"booking_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Reason        string `json:"reason,omitempty"`
}

// completionResultFrom rebuilds the result of an already-recorded payout
// from the booking row.
func completionResultFrom(b *datamodel.Booking, currency string) *CompletionResult {
	result := &CompletionResult{
		BookingID:     b.ID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Currency:      currency,
	}
	if b.ProviderTransferID != nil {
		result.TransferID = *b.ProviderTransferID
	}
	if b.ProviderPayoutAmount != nil {
		result.ProviderPayout = *b.ProviderPayoutAmount
	}
	if b.PlatformFeeCollected != nil {
		result.PlatformFee = *b.PlatformFeeCollected
	}
	if b.ProviderPaidAt != nil {
		result.PaidAt = *b.ProviderPaidAt
	}
	return result
}

func declineResultFrom(b *datamodel.Booking) *DeclineResult {
	result := &DeclineResult{
		BookingID:     b.ID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
	}
	if b.DeclinedReason != nil {
		result.Reason = *b.DeclinedReason
	}
	return result
}
