package postgres

import (
	"gorm.io/gorm"

	"github.com/handyhub/booking-payments/internal/booking"
	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/booking"
)

// BookingRepository implements the booking.Repository interface using GORM
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) booking.Repository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(id int64) (*datamodel.Booking, error) {
	var b datamodel.Booking
	err := r.db.Where("id = ?", id).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CompletePayout records a successful transfer with a conditional update.
// The guard on payment_status and provider_paid_at makes the write succeed
// at most once per booking; zero rows affected means another request
// already recorded a payout.
func (r *BookingRepository) CompletePayout(bookingID int64, update booking.PayoutUpdate) (int64, error) {
	result := r.db.Model(&datamodel.Booking{}).
		Where("id = ? AND payment_status = ? AND provider_paid_at IS NULL",
			bookingID, datamodel.PaymentStatusFundsHeld).
		Updates(map[string]interface{}{
			"status":                 datamodel.StatusCompleted,
			"payment_status":         datamodel.PaymentStatusPayoutCompleted,
			"provider_transfer_id":   update.TransferID,
			"provider_payout_amount": update.PayoutAmount,
			"platform_fee_collected": update.PlatformFee,
			"provider_paid_at":       update.PaidAt,
			"updated_at":             update.PaidAt,
		})
	return result.RowsAffected, result.Error
}

// Decline closes a pending booking after a refund. The status guard means
// only the first decline wins; zero rows signals a concurrent transition.
func (r *BookingRepository) Decline(bookingID int64, update booking.DeclineUpdate) (int64, error) {
	result := r.db.Model(&datamodel.Booking{}).
		Where("id = ? AND status = ?", bookingID, datamodel.StatusPending).
		Updates(map[string]interface{}{
			"status":          datamodel.StatusDeclined,
			"payment_status":  datamodel.PaymentStatusRefunded,
			"declined_reason": update.Reason,
			"respond_by":      nil,
			"updated_at":      update.DeclinedAt,
		})
	return result.RowsAffected, result.Error
}
