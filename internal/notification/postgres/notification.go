package postgres

import (
	"gorm.io/gorm"

	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/notification"
	"github.com/handyhub/booking-payments/internal/notification"
)

// NotificationRepository implements notification.Repository using GORM
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *datamodel.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) ListByUser(userID int64, limit, offset int) ([]*datamodel.Notification, error) {
	var notifications []*datamodel.Notification
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, err
}
