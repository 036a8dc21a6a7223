package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeBookingCompleted       = "booking.completed"
	EventTypeBookingDeclined        = "booking.declined"
	EventTypeReconciliationRequired = "payout.reconciliation_required"
)

type BookingCompletedEvent struct {
	BaseEvent
	BookingID        int64  `json:"booking_id"`
	CustomerID       int64  `json:"customer_id"`
	ProviderID       int64  `json:"provider_id"`
	TransferID       string `json:"transfer_id"`
	PayoutAmount     int64  `json:"payout_amount"`
	CommissionAmount int64  `json:"commission_amount"`
	Currency         string `json:"currency"`
}

func NewBookingCompletedEvent(bookingID, customerID, providerID int64, transferID string, payoutAmount, commissionAmount int64, currency string) *BookingCompletedEvent {
	return &BookingCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBookingCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":        bookingID,
				"customer_id":       customerID,
				"provider_id":       providerID,
				"transfer_id":       transferID,
				"payout_amount":     payoutAmount,
				"commission_amount": commissionAmount,
				"currency":          currency,
			},
		},
		BookingID:        bookingID,
		CustomerID:       customerID,
		ProviderID:       providerID,
		TransferID:       transferID,
		PayoutAmount:     payoutAmount,
		CommissionAmount: commissionAmount,
		Currency:         currency,
	}
}

type BookingDeclinedEvent struct {
	BaseEvent
	BookingID  int64  `json:"booking_id"`
	CustomerID int64  `json:"customer_id"`
	ProviderID int64  `json:"provider_id"`
	RefundID   string `json:"refund_id"`
	Reason     string `json:"reason,omitempty"`
}

func NewBookingDeclinedEvent(bookingID, customerID, providerID int64, refundID, reason string) *BookingDeclinedEvent {
	return &BookingDeclinedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBookingDeclined,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":  bookingID,
				"customer_id": customerID,
				"provider_id": providerID,
				"refund_id":   refundID,
				"reason":      reason,
			},
		},
		BookingID:  bookingID,
		CustomerID: customerID,
		ProviderID: providerID,
		RefundID:   refundID,
		Reason:     reason,
	}
}

// ReconciliationRequiredEvent is raised when money moved at the processor
// but the local record does not reflect it. These must reach an operator;
// the alert row in reconciliation_alerts is the durable copy.
type ReconciliationRequiredEvent struct {
	BaseEvent
	BookingID  int64  `json:"booking_id"`
	TransferID string `json:"transfer_id,omitempty"`
	Reason     string `json:"reason"`
}

func NewReconciliationRequiredEvent(bookingID int64, transferID, reason string) *ReconciliationRequiredEvent {
	return &ReconciliationRequiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReconciliationRequired,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":  bookingID,
				"transfer_id": transferID,
				"reason":      reason,
			},
		},
		BookingID:  bookingID,
		TransferID: transferID,
		Reason:     reason,
	}
}
