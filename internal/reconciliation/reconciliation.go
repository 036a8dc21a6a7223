package reconciliation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/reconciliation"
	"github.com/handyhub/booking-payments/internal/core/events"
)

// Repository persists reconciliation alerts. Alerts must land durably:
// each one represents money that moved at the processor without a matching
// local record.
type Repository interface {
	Create(alert *datamodel.Alert) error
	ListOpen(limit, offset int) ([]*datamodel.Alert, error)
	Resolve(id int64) error
}

type Service struct {
	repo     Repository
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// RaiseAlert records a discrepancy between processor state and local state
// for operator review. The alert row is the durable signal; the event and
// log line are best-effort fanout on top of it.
func (s *Service) RaiseAlert(ctx context.Context, bookingID int64, transferID *string, reason string, details map[string]interface{}) {
	var detailsJSON []byte
	if details != nil {
		detailsJSON, _ = json.Marshal(details)
	}

	alert := &datamodel.Alert{
		BookingID:  bookingID,
		TransferID: transferID,
		Reason:     reason,
		Details:    detailsJSON,
		Status:     datamodel.StatusOpen,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.Create(alert); err != nil {
		// Last line of defense: the log line is all that is left if even
		// the alert row cannot be written.
		s.logger.Error("CRITICAL: failed to persist reconciliation alert",
			"error", err,
			"booking_id", bookingID,
			"reason", reason)
	}

	s.logger.Error("reconciliation required",
		"booking_id", bookingID,
		"transfer_id", transferID,
		"reason", reason)

	if s.eventBus != nil {
		tid := ""
		if transferID != nil {
			tid = *transferID
		}
		s.eventBus.Publish(ctx, events.NewReconciliationRequiredEvent(bookingID, tid, reason))
	}
}

// ListOpen returns unresolved alerts for operator tooling.
func (s *Service) ListOpen(limit, offset int) ([]*datamodel.Alert, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListOpen(limit, offset)
}

// Resolve marks an alert handled after manual review.
func (s *Service) Resolve(id int64) error {
	return s.repo.Resolve(id)
}
