package booking

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/handyhub/booking-payments/internal"
	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/booking"
	notificationdm "github.com/handyhub/booking-payments/internal/core/datamodel/notification"
	"github.com/handyhub/booking-payments/internal/core/events"
	"github.com/handyhub/booking-payments/internal/notification"
	"github.com/handyhub/booking-payments/internal/processor"
	"github.com/handyhub/booking-payments/internal/reconciliation"
)

// PaymentProcessor is the slice of the processor client the booking flow
// needs.
type PaymentProcessor interface {
	CreateTransfer(ctx context.Context, req processor.TransferRequest) (*processor.TransferResult, error)
	CreateRefund(ctx context.Context, req processor.RefundRequest) (*processor.RefundResult, error)
	Currency() string
}

// ProviderDirectory resolves a provider's connected payout account. An
// empty account id means the provider has not finished onboarding.
type ProviderDirectory interface {
	ProcessorAccountID(providerID int64) (string, error)
}

// PayoutLedger appends the per-booking payout record after a transfer.
type PayoutLedger interface {
	Record(bookingID, providerID int64, transferID string, amount int64, currency string) error
}

// PayoutUpdate is the write applied when a transfer succeeds.
type PayoutUpdate struct {
	TransferID     string
	PayoutAmount   int64
	PlatformFee    int64
	PaidAt         time.Time
}

// DeclineUpdate is the write applied when a provider declines.
type DeclineUpdate struct {
	Reason     string
	DeclinedAt time.Time
}

// Repository defines the data access methods for bookings. The two update
// methods are conditional writes: they return the number of rows changed,
// and zero rows means another request got there first.
type Repository interface {
	GetByID(id int64) (*datamodel.Booking, error)
	CompletePayout(bookingID int64, update PayoutUpdate) (int64, error)
	Decline(bookingID int64, update DeclineUpdate) (int64, error)
}

// Service orchestrates the booking payment lifecycle.
type Service struct {
	repo              Repository
	paymentProcessor  PaymentProcessor
	providers         ProviderDirectory
	ledger            PayoutLedger
	reconciliation    *reconciliation.Service
	notifier          notification.Notifier
	eventBus          *events.EventBus
	commissionPercent int64
	logger            *slog.Logger
}

func NewService(
	repo Repository,
	paymentProcessor PaymentProcessor,
	providers ProviderDirectory,
	ledger PayoutLedger,
	recon *reconciliation.Service,
	notifier notification.Notifier,
	eventBus *events.EventBus,
	commissionPercent int64,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:              repo,
		paymentProcessor:  paymentProcessor,
		providers:         providers,
		ledger:            ledger,
		reconciliation:    recon,
		notifier:          notifier,
		eventBus:          eventBus,
		commissionPercent: commissionPercent,
		logger:            logger,
	}
}

// CompleteBooking confirms the service happened, releases escrowed funds to
// the provider minus commission, and marks the booking complete.
//
// The idempotency check runs before the status check: a replayed completion
// sees status "completed" and must still return the original result rather
// than an invalid-state error.
func (s *Service) CompleteBooking(ctx context.Context, bookingID, customerID int64) (*CompletionResult, error) {
	b, err := s.repo.GetByID(bookingID)
	if err != nil {
		return nil, apperrors.ErrBookingNotFound
	}

	if b.CustomerID != customerID {
		s.logger.Warn("completion attempt by non-owner",
			"booking_id", bookingID,
			"customer_id", customerID,
			"owner_id", b.CustomerID)
		return nil, apperrors.ErrUnauthorizedAccess
	}

	if b.AlreadyPaidOut() {
		s.logger.Info("completion replay, returning recorded result",
			"booking_id", bookingID,
			"transfer_id", b.ProviderTransferID)
		return completionResultFrom(b, s.paymentProcessor.Currency()), nil
	}

	if !b.CanComplete() {
		return nil, apperrors.NewInvalidStateError("complete", b.Status)
	}

	if !b.FundsHeld() {
		s.logger.Error("completion attempted without escrowed funds",
			"booking_id", bookingID,
			"payment_status", b.PaymentStatus)
		return nil, apperrors.ErrPaymentNotReady
	}

	accountID, err := s.providers.ProcessorAccountID(b.ProviderID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to resolve provider account", err)
	}
	if accountID == "" {
		return nil, apperrors.ErrProviderNotOnboarded
	}

	commission, payoutAmount := SplitPayment(b.TotalAmount, s.commissionPercent)
	currency := s.paymentProcessor.Currency()

	transfer, err := s.paymentProcessor.CreateTransfer(ctx, processor.TransferRequest{
		Amount:             payoutAmount,
		Currency:           currency,
		DestinationAccount: accountID,
		BookingID:          b.ID,
	})
	if err != nil {
		s.logger.Error("transfer failed, booking left untouched",
			"error", err,
			"booking_id", bookingID,
			"amount", payoutAmount)
		return nil, apperrors.NewExternalError("payout transfer failed", apperrors.ErrCodeTransferFailed, err)
	}

	now := time.Now()
	update := PayoutUpdate{
		TransferID:   transfer.ID,
		PayoutAmount: payoutAmount,
		PlatformFee:  commission,
		PaidAt:       now,
	}

	rows, err := s.repo.CompletePayout(b.ID, update)
	if err != nil {
		// The transfer happened; failing the request now would invite a
		// retry and a double payout. Alert and answer success.
		s.reconciliation.RaiseAlert(ctx, b.ID, &transfer.ID,
			"transfer created but booking update failed",
			map[string]interface{}{
				"transfer_id": transfer.ID,
				"amount":      payoutAmount,
				"error":       err.Error(),
			})
		return s.resultAfterTransfer(b, transfer.ID, payoutAmount, commission, currency, now), nil
	}

	if rows == 0 {
		// Lost the race: a concurrent request recorded its own transfer
		// first, so the transfer this request made is an extra one.
		s.reconciliation.RaiseAlert(ctx, b.ID, &transfer.ID,
			"duplicate transfer created by concurrent completion",
			map[string]interface{}{
				"transfer_id": transfer.ID,
				"amount":      payoutAmount,
			})

		recorded, rerr := s.repo.GetByID(b.ID)
		if rerr == nil && recorded.AlreadyPaidOut() {
			return completionResultFrom(recorded, currency), nil
		}
		return s.resultAfterTransfer(b, transfer.ID, payoutAmount, commission, currency, now), nil
	}

	if err := s.ledger.Record(b.ID, b.ProviderID, transfer.ID, payoutAmount, currency); err != nil {
		s.reconciliation.RaiseAlert(ctx, b.ID, &transfer.ID,
			"payout ledger append failed",
			map[string]interface{}{
				"transfer_id": transfer.ID,
				"amount":      payoutAmount,
				"error":       err.Error(),
			})
	}

	s.logger.Info("booking completed",
		"booking_id", b.ID,
		"transfer_id", transfer.ID,
		"provider_payout", payoutAmount,
		"platform_fee", commission)

	s.eventBus.Publish(ctx, events.NewBookingCompletedEvent(
		b.ID, b.CustomerID, b.ProviderID, transfer.ID, payoutAmount, commission, currency))

	s.notifier.Notify(notificationdm.TypePaymentReleased, b.ProviderID, b.ID, map[string]interface{}{
		"amount": formatMinorUnits(payoutAmount, currency),
	})
	s.notifier.Notify(notificationdm.TypeServiceCompleted, b.CustomerID, b.ID, nil)

	return &CompletionResult{
		BookingID:      b.ID,
		Status:         datamodel.StatusCompleted,
		PaymentStatus:  datamodel.PaymentStatusPayoutCompleted,
		TransferID:     transfer.ID,
		ProviderPayout: payoutAmount,
		PlatformFee:    commission,
		Currency:       currency,
		PaidAt:         now,
	}, nil
}

// DeclineBooking refunds the customer in full and closes the booking. Only
// the assigned provider may decline, and only while the booking is pending.
func (s *Service) DeclineBooking(ctx context.Context, bookingID, providerID int64, dto DeclineBookingDTO) (*DeclineResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	b, err := s.repo.GetByID(bookingID)
	if err != nil {
		return nil, apperrors.ErrBookingNotFound
	}

	if b.ProviderID != providerID {
		s.logger.Warn("decline attempt by non-assigned provider",
			"booking_id", bookingID,
			"provider_id", providerID,
			"assigned_id", b.ProviderID)
		return nil, apperrors.ErrUnauthorizedAccess
	}

	// Replayed decline: the refund already went out.
	if b.Status == datamodel.StatusDeclined {
		s.logger.Info("decline replay, returning recorded result", "booking_id", bookingID)
		return declineResultFrom(b), nil
	}

	if !b.CanDecline() {
		return nil, apperrors.NewInvalidStateError("decline", b.Status)
	}

	refund, err := s.paymentProcessor.CreateRefund(ctx, processor.RefundRequest{
		PaymentIntentID: b.PaymentIntentID,
		Reason:          dto.Reason,
		BookingID:       b.ID,
	})
	if err != nil {
		s.logger.Error("refund failed, booking left untouched",
			"error", err,
			"booking_id", bookingID)
		return nil, apperrors.NewExternalError("refund failed", apperrors.ErrCodeRefundFailed, err)
	}

	now := time.Now()
	rows, err := s.repo.Decline(b.ID, DeclineUpdate{Reason: dto.Reason, DeclinedAt: now})
	if err != nil {
		s.reconciliation.RaiseAlert(ctx, b.ID, nil,
			"refund issued but booking update failed",
			map[string]interface{}{
				"refund_id": refund.ID,
				"error":     err.Error(),
			})
		return &DeclineResult{
			BookingID:     b.ID,
			Status:        datamodel.StatusDeclined,
			PaymentStatus: datamodel.PaymentStatusRefunded,
			Reason:        dto.Reason,
		}, nil
	}

	if rows == 0 {
		recorded, rerr := s.repo.GetByID(b.ID)
		if rerr == nil && recorded.Status == datamodel.StatusDeclined {
			return declineResultFrom(recorded), nil
		}
		s.reconciliation.RaiseAlert(ctx, b.ID, nil,
			"refund issued but booking moved to unexpected status",
			map[string]interface{}{"refund_id": refund.ID})
		return nil, apperrors.NewInvalidStateError("decline", b.Status)
	}

	s.logger.Info("booking declined",
		"booking_id", b.ID,
		"provider_id", providerID,
		"refund_id", refund.ID)

	s.eventBus.Publish(ctx, events.NewBookingDeclinedEvent(
		b.ID, b.CustomerID, b.ProviderID, refund.ID, dto.Reason))

	s.notifier.Notify(notificationdm.TypeBookingDeclined, b.CustomerID, b.ID, map[string]interface{}{
		"reason": dto.Reason,
	})

	return &DeclineResult{
		BookingID:     b.ID,
		Status:        datamodel.StatusDeclined,
		PaymentStatus: datamodel.PaymentStatusRefunded,
		Reason:        dto.Reason,
	}, nil
}

// GetBooking returns a booking visible to either of its two parties.
func (s *Service) GetBooking(bookingID, userID int64) (*datamodel.Booking, error) {
	b, err := s.repo.GetByID(bookingID)
	if err != nil {
		return nil, apperrors.ErrBookingNotFound
	}

	if b.CustomerID != userID && b.ProviderID != userID {
		return nil, apperrors.ErrUnauthorizedAccess
	}

	return b, nil
}

func (s *Service) resultAfterTransfer(b *datamodel.Booking, transferID string, payoutAmount, commission int64, currency string, paidAt time.Time) *CompletionResult {
	return &CompletionResult{
		BookingID:      b.ID,
		Status:         datamodel.StatusCompleted,
		PaymentStatus:  datamodel.PaymentStatusPayoutCompleted,
		TransferID:     transferID,
		ProviderPayout: payoutAmount,
		PlatformFee:    commission,
		Currency:       currency,
		PaidAt:         paidAt,
	}
}
