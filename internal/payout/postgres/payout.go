package postgres

import (
	"time"

	"gorm.io/gorm"

	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/payout"
	"github.com/handyhub/booking-payments/internal/payout"
)

// PayoutRepository implements payout.Repository using GORM
type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) payout.Repository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) Create(p *datamodel.ProviderPayout) error {
	return r.db.Create(p).Error
}

func (r *PayoutRepository) GetByBookingID(bookingID int64) (*datamodel.ProviderPayout, error) {
	var p datamodel.ProviderPayout
	err := r.db.Where("booking_id = ?", bookingID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PayoutRepository) GetByTransferID(transferID string) (*datamodel.ProviderPayout, error) {
	var p datamodel.ProviderPayout
	err := r.db.Where("transfer_id = ?", transferID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PayoutRepository) ListByProvider(providerID int64, limit, offset int) ([]*datamodel.ProviderPayout, error) {
	var payouts []*datamodel.ProviderPayout
	err := r.db.Where("provider_id = ?", providerID).
		Order("payout_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepository) TotalForProvider(providerID int64) (int64, error) {
	var total int64
	err := r.db.Model(&datamodel.ProviderPayout{}).
		Where("provider_id = ?", providerID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *PayoutRepository) MarkSettledByTransferID(transferID string, settledAt time.Time) (int64, error) {
	result := r.db.Model(&datamodel.ProviderPayout{}).
		Where("transfer_id = ? AND status = ?", transferID, datamodel.StatusPending).
		Updates(map[string]interface{}{
			"status":     datamodel.StatusCompleted,
			"settled_at": settledAt,
		})
	return result.RowsAffected, result.Error
}
