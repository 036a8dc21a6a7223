package payout

import (
	"context"
	"log/slog"
	"time"

	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/payout"
	"github.com/handyhub/booking-payments/internal/reconciliation"
)

// Repository stores the provider payout ledger. Create must fail on a
// duplicate booking_id; the unique index is the backstop for double payout.
type Repository interface {
	Create(p *datamodel.ProviderPayout) error
	GetByBookingID(bookingID int64) (*datamodel.ProviderPayout, error)
	GetByTransferID(transferID string) (*datamodel.ProviderPayout, error)
	ListByProvider(providerID int64, limit, offset int) ([]*datamodel.ProviderPayout, error)
	TotalForProvider(providerID int64) (int64, error)
	MarkSettledByTransferID(transferID string, settledAt time.Time) (int64, error)
}

type Service struct {
	repo           Repository
	reconciliation *reconciliation.Service
	logger         *slog.Logger
}

func NewService(repo Repository, recon *reconciliation.Service, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		reconciliation: recon,
		logger:         logger,
	}
}

// Record appends a ledger row for a transfer that already happened at the
// processor. A failure here is not a payout failure; the caller raises a
// reconciliation alert instead of retrying the transfer.
func (s *Service) Record(bookingID, providerID int64, transferID string, amount int64, currency string) error {
	row := &datamodel.ProviderPayout{
		BookingID:  bookingID,
		ProviderID: providerID,
		TransferID: transferID,
		Amount:     amount,
		Currency:   currency,
		Status:     datamodel.StatusPending,
		PayoutDate: time.Now(),
		CreatedAt:  time.Now(),
	}
	return s.repo.Create(row)
}

// Earnings returns a provider's payout history plus the lifetime total in
// minor units.
func (s *Service) Earnings(providerID int64, limit, offset int) ([]*datamodel.ProviderPayout, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	payouts, err := s.repo.ListByProvider(providerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.TotalForProvider(providerID)
	if err != nil {
		return nil, 0, err
	}

	return payouts, total, nil
}

// HandleTransferSettled marks the matching ledger row settled when the
// processor confirms a transfer. An unknown transfer id means the ledger
// and the processor disagree, which is a reconciliation case.
func (s *Service) HandleTransferSettled(ctx context.Context, transferID string) error {
	rows, err := s.repo.MarkSettledByTransferID(transferID, time.Now())
	if err != nil {
		return err
	}

	if rows == 0 {
		s.logger.Warn("settlement webhook for unknown transfer", "transfer_id", transferID)
		s.reconciliation.RaiseAlert(ctx, 0, &transferID,
			"transfer settled at processor but no matching payout row",
			map[string]interface{}{"transfer_id": transferID})
		return nil
	}

	s.logger.Info("payout settled", "transfer_id", transferID)
	return nil
}

// HandleTransferFailed reacts to a post-creation transfer failure reported
// by the processor. Funds already left escrow locally, so this always
// raises an alert for manual repair.
func (s *Service) HandleTransferFailed(ctx context.Context, transferID, reason string) error {
	payoutRow, err := s.repo.GetByTransferID(transferID)

	bookingID := int64(0)
	details := map[string]interface{}{
		"transfer_id":    transferID,
		"failure_reason": reason,
	}
	if err == nil && payoutRow != nil {
		bookingID = payoutRow.BookingID
		details["provider_id"] = payoutRow.ProviderID
		details["amount"] = payoutRow.Amount
	}

	s.reconciliation.RaiseAlert(ctx, bookingID, &transferID,
		"transfer failed after creation", details)
	return nil
}
