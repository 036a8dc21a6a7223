package payout

import (
	"time"

	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/payout"
)

type PayoutDTO struct {
	ID         int64      `json:"id"`
	BookingID  int64      `json:"booking_id"`
	TransferID string     `json:"transfer_id"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
	PayoutDate time.Time  `json:"payout_date"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
}

// EarningsResponse is the provider earnings view: the payout history page
// plus the lifetime total, both in minor units.
type EarningsResponse struct {
	Payouts       []PayoutDTO `json:"payouts"`
	TotalEarnings int64       `json:"total_earnings"`
	Currency      string      `json:"currency"`
}

func toDTO(p *datamodel.ProviderPayout) PayoutDTO {
	return PayoutDTO{
		ID:         p.ID,
		BookingID:  p.BookingID,
		TransferID: p.TransferID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     p.Status,
		PayoutDate: p.PayoutDate,
		SettledAt:  p.SettledAt,
	}
}
