package postgres

import (
	"time"

	"gorm.io/gorm"

	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/reconciliation"
	"github.com/handyhub/booking-payments/internal/reconciliation"
)

// AlertRepository implements reconciliation.Repository using GORM
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) reconciliation.Repository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(alert *datamodel.Alert) error {
	return r.db.Create(alert).Error
}

func (r *AlertRepository) ListOpen(limit, offset int) ([]*datamodel.Alert, error) {
	var alerts []*datamodel.Alert
	err := r.db.Where("status = ?", datamodel.StatusOpen).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&alerts).Error
	return alerts, err
}

func (r *AlertRepository) Resolve(id int64) error {
	now := time.Now()
	return r.db.Model(&datamodel.Alert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      datamodel.StatusResolved,
			"resolved_at": now,
		}).Error
}
