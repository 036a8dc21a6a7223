package booking_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/handyhub/booking-payments/internal"
	"github.com/handyhub/booking-payments/internal/booking"
	bookingdm "github.com/handyhub/booking-payments/internal/core/datamodel/booking"
	reconciliationdm "github.com/handyhub/booking-payments/internal/core/datamodel/reconciliation"
	"github.com/handyhub/booking-payments/internal/core/events"
	"github.com/handyhub/booking-payments/internal/processor"
	"github.com/handyhub/booking-payments/internal/reconciliation"
)

// Mock repository for testing
type mockBookingRepository struct {
	bookings            map[int64]*bookingdm.Booking
	getError            error
	completePayoutError error
	forceNoRows         bool
	declineError        error
	forceDeclineNoRows  bool
	completePayoutCalls int
	declineCalls        int
}

func newMockBookingRepository() *mockBookingRepository {
	return &mockBookingRepository{
		bookings: make(map[int64]*bookingdm.Booking),
	}
}

func (m *mockBookingRepository) GetByID(id int64) (*bookingdm.Booking, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	b, exists := m.bookings[id]
	if !exists {
		return nil, errors.New("record not found")
	}
	copied := *b
	return &copied, nil
}

func (m *mockBookingRepository) CompletePayout(bookingID int64, update booking.PayoutUpdate) (int64, error) {
	m.completePayoutCalls++
	if m.completePayoutError != nil {
		return 0, m.completePayoutError
	}
	if m.forceNoRows {
		return 0, nil
	}

	b, exists := m.bookings[bookingID]
	if !exists || b.PaymentStatus != bookingdm.PaymentStatusFundsHeld || b.ProviderPaidAt != nil {
		return 0, nil
	}

	b.Status = bookingdm.StatusCompleted
	b.PaymentStatus = bookingdm.PaymentStatusPayoutCompleted
	b.ProviderTransferID = &update.TransferID
	b.ProviderPayoutAmount = &update.PayoutAmount
	b.PlatformFeeCollected = &update.PlatformFee
	paidAt := update.PaidAt
	b.ProviderPaidAt = &paidAt
	return 1, nil
}

func (m *mockBookingRepository) Decline(bookingID int64, update booking.DeclineUpdate) (int64, error) {
	m.declineCalls++
	if m.declineError != nil {
		return 0, m.declineError
	}
	if m.forceDeclineNoRows {
		return 0, nil
	}

	b, exists := m.bookings[bookingID]
	if !exists || b.Status != bookingdm.StatusPending {
		return 0, nil
	}

	b.Status = bookingdm.StatusDeclined
	b.PaymentStatus = bookingdm.PaymentStatusRefunded
	reason := update.Reason
	b.DeclinedReason = &reason
	return 1, nil
}

// Mock payment processor for testing
type mockPaymentProcessor struct {
	transferError  error
	refundError    error
	transferCalls  int
	refundCalls    int
	lastTransfer   processor.TransferRequest
	lastRefund     processor.RefundRequest
	nextTransferID string
	nextRefundID   string
}

func newMockPaymentProcessor() *mockPaymentProcessor {
	return &mockPaymentProcessor{
		nextTransferID: "tr_mock_001",
		nextRefundID:   "re_mock_001",
	}
}

func (m *mockPaymentProcessor) CreateTransfer(ctx context.Context, req processor.TransferRequest) (*processor.TransferResult, error) {
	m.transferCalls++
	m.lastTransfer = req
	if m.transferError != nil {
		return nil, m.transferError
	}
	return &processor.TransferResult{
		ID:                 m.nextTransferID,
		Amount:             req.Amount,
		DestinationAccount: req.DestinationAccount,
	}, nil
}

func (m *mockPaymentProcessor) CreateRefund(ctx context.Context, req processor.RefundRequest) (*processor.RefundResult, error) {
	m.refundCalls++
	m.lastRefund = req
	if m.refundError != nil {
		return nil, m.refundError
	}
	return &processor.RefundResult{ID: m.nextRefundID, Status: "succeeded"}, nil
}

func (m *mockPaymentProcessor) Currency() string {
	return "GBP"
}

type mockProviderDirectory struct {
	accounts map[int64]string
	err      error
}

func (m *mockProviderDirectory) ProcessorAccountID(providerID int64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.accounts[providerID], nil
}

type ledgerEntry struct {
	BookingID  int64
	ProviderID int64
	TransferID string
	Amount     int64
	Currency   string
}

type mockPayoutLedger struct {
	entries     []ledgerEntry
	recordError error
}

func (m *mockPayoutLedger) Record(bookingID, providerID int64, transferID string, amount int64, currency string) error {
	if m.recordError != nil {
		return m.recordError
	}
	m.entries = append(m.entries, ledgerEntry{bookingID, providerID, transferID, amount, currency})
	return nil
}

type mockAlertRepository struct {
	mu     sync.Mutex
	alerts []*reconciliationdm.Alert
}

func (m *mockAlertRepository) Create(alert *reconciliationdm.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockAlertRepository) ListOpen(limit, offset int) ([]*reconciliationdm.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts, nil
}

func (m *mockAlertRepository) Resolve(id int64) error { return nil }

func (m *mockAlertRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

type sentNotification struct {
	Type      string
	UserID    int64
	BookingID int64
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (m *mockNotifier) Notify(notificationType string, userID, bookingID int64, payload map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{notificationType, userID, bookingID})
}

var _ = Describe("BookingService", func() {
	var (
		service    *booking.Service
		mockRepo   *mockBookingRepository
		mockProc   *mockPaymentProcessor
		mockDir    *mockProviderDirectory
		mockLedger *mockPayoutLedger
		alertRepo  *mockAlertRepository
		notifier   *mockNotifier
		logger     *slog.Logger
		ctx        context.Context
	)

	const (
		customerID = int64(10)
		providerID = int64(20)
		bookingID  = int64(1)
	)

	newBooking := func(status, paymentStatus string, total int64) *bookingdm.Booking {
		return &bookingdm.Booking{
			ID:              bookingID,
			CustomerID:      customerID,
			ProviderID:      providerID,
			ServiceID:       5,
			Status:          status,
			PaymentStatus:   paymentStatus,
			TotalAmount:     total,
			PaymentIntentID: "pi_test_001",
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		mockRepo = newMockBookingRepository()
		mockProc = newMockPaymentProcessor()
		mockDir = &mockProviderDirectory{accounts: map[int64]string{providerID: "acct_test_001"}}
		mockLedger = &mockPayoutLedger{}
		alertRepo = &mockAlertRepository{}
		notifier = &mockNotifier{}

		reconService := reconciliation.NewService(alertRepo, nil, logger)
		eventBus := events.NewEventBus(logger)

		service = booking.NewService(
			mockRepo, mockProc, mockDir, mockLedger,
			reconService, notifier, eventBus, 10, logger)
	})

	Describe("CompleteBooking", func() {
		Context("when the booking is in progress with funds held", func() {
			BeforeEach(func() {
				// Given a £100.00 booking with escrowed funds
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusInProgress, bookingdm.PaymentStatusFundsHeld, 10000)
			})

			It("should transfer the payout minus commission", func() {
				// When the customer completes the booking
				result, err := service.CompleteBooking(ctx, bookingID, customerID)

				// Then the provider receives 90% and the platform keeps 10%
				Expect(err).NotTo(HaveOccurred())
				Expect(result.ProviderPayout).To(Equal(int64(9000)))
				Expect(result.PlatformFee).To(Equal(int64(1000)))
				Expect(result.Status).To(Equal(bookingdm.StatusCompleted))
				Expect(result.PaymentStatus).To(Equal(bookingdm.PaymentStatusPayoutCompleted))
				Expect(result.TransferID).To(Equal("tr_mock_001"))

				Expect(mockProc.transferCalls).To(Equal(1))
				Expect(mockProc.lastTransfer.Amount).To(Equal(int64(9000)))
				Expect(mockProc.lastTransfer.DestinationAccount).To(Equal("acct_test_001"))
			})

			It("should append a payout ledger entry", func() {
				_, err := service.CompleteBooking(ctx, bookingID, customerID)

				Expect(err).NotTo(HaveOccurred())
				Expect(mockLedger.entries).To(HaveLen(1))
				Expect(mockLedger.entries[0].Amount).To(Equal(int64(9000)))
				Expect(mockLedger.entries[0].ProviderID).To(Equal(providerID))
				Expect(mockLedger.entries[0].Currency).To(Equal("GBP"))
			})

			It("should notify both parties", func() {
				_, err := service.CompleteBooking(ctx, bookingID, customerID)

				Expect(err).NotTo(HaveOccurred())
				Expect(notifier.sent).To(HaveLen(2))
			})
		})

		Context("when the total does not divide evenly", func() {
			It("should round the commission half up and keep the sum exact", func() {
				// Given a £99.99 booking at 10% commission
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusConfirmed, bookingdm.PaymentStatusFundsHeld, 9999)

				result, err := service.CompleteBooking(ctx, bookingID, customerID)

				// Then commission is £10.00 and payout is £89.99
				Expect(err).NotTo(HaveOccurred())
				Expect(result.PlatformFee).To(Equal(int64(1000)))
				Expect(result.ProviderPayout).To(Equal(int64(8999)))
				Expect(result.PlatformFee + result.ProviderPayout).To(Equal(int64(9999)))
			})
		})

		Context("when the completion is replayed", func() {
			It("should return the recorded result without a second transfer", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusInProgress, bookingdm.PaymentStatusFundsHeld, 10000)

				// Given a completed first call
				first, err := service.CompleteBooking(ctx, bookingID, customerID)
				Expect(err).NotTo(HaveOccurred())

				// When the same customer retries
				second, err := service.CompleteBooking(ctx, bookingID, customerID)

				// Then the replay returns the original amounts and no new transfer
				Expect(err).NotTo(HaveOccurred())
				Expect(second.TransferID).To(Equal(first.TransferID))
				Expect(second.ProviderPayout).To(Equal(first.ProviderPayout))
				Expect(second.PlatformFee).To(Equal(first.PlatformFee))
				Expect(mockProc.transferCalls).To(Equal(1))
				Expect(mockLedger.entries).To(HaveLen(1))
			})
		})

		Context("when the requester is not the booking's customer", func() {
			It("should return a forbidden error and not touch the processor", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusInProgress, bookingdm.PaymentStatusFundsHeld, 10000)

				_, err := service.CompleteBooking(ctx, bookingID, customerID+1)

				Expect(err).To(Equal(apperrors.ErrUnauthorizedAccess))
				Expect(mockProc.transferCalls).To(Equal(0))
			})
		})

		Context("when the booking does not exist", func() {
			It("should return not found", func() {
				_, err := service.CompleteBooking(ctx, 999, customerID)

				Expect(err).To(Equal(apperrors.ErrBookingNotFound))
			})
		})

		Context("when the booking status does not allow completion", func() {
			It("should reject a pending booking", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusPending, bookingdm.PaymentStatusFundsHeld, 10000)

				_, err := service.CompleteBooking(ctx, bookingID, customerID)

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidBookingState))
				Expect(mockProc.transferCalls).To(Equal(0))
			})

			It("should reject a declined booking", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusDeclined, bookingdm.PaymentStatusRefunded, 10000)

				_, err := service.CompleteBooking(ctx, bookingID, customerID)

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidBookingState))
			})
		})

		Context("when funds are not escrowed", func() {
			It("should return payment not ready", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusConfirmed, bookingdm.PaymentStatusAuthorized, 10000)

				_, err := service.CompleteBooking(ctx, bookingID, customerID)

				Expect(err).To(Equal(apperrors.ErrPaymentNotReady))
				Expect(mockProc.transferCalls).To(Equal(0))
			})
		})

		Context("when the provider has no payout account", func() {
			It("should fail before calling the processor", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusConfirmed, bookingdm.PaymentStatusFundsHeld, 10000)
				mockDir.accounts = map[int64]string{}

				_, err := service.CompleteBooking(ctx, bookingID, customerID)

				Expect(err).To(Equal(apperrors.ErrProviderNotOnboarded))
				Expect(mockProc.transferCalls).To(Equal(0))
			})
		})

		Context("when the transfer fails", func() {
			It("should leave the booking untouched so the customer can retry", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusInProgress, bookingdm.PaymentStatusFundsHeld, 10000)
				mockProc.transferError = errors.New("insufficient platform balance")

				_, err := service.CompleteBooking(ctx, bookingID, customerID)

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeTransferFailed))

				// Booking stays payable
				b, _ := mockRepo.GetByID(bookingID)
				Expect(b.PaymentStatus).To(Equal(bookingdm.PaymentStatusFundsHeld))
				Expect(b.ProviderPaidAt).To(BeNil())
				Expect(mockRepo.completePayoutCalls).To(Equal(0))
			})
		})

		Context("when the local write fails after the transfer succeeded", func() {
			It("should return success and raise a reconciliation alert", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusInProgress, bookingdm.PaymentStatusFundsHeld, 10000)
				mockRepo.completePayoutError = errors.New("connection reset")

				result, err := service.CompleteBooking(ctx, bookingID, customerID)

				// The money moved; the request must not look retryable.
				Expect(err).NotTo(HaveOccurred())
				Expect(result.TransferID).To(Equal("tr_mock_001"))
				Expect(alertRepo.count()).To(Equal(1))
			})
		})

		Context("when the conditional update affects zero rows", func() {
			It("should raise an alert for the extra transfer and still answer success", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusInProgress, bookingdm.PaymentStatusFundsHeld, 10000)
				mockRepo.forceNoRows = true

				result, err := service.CompleteBooking(ctx, bookingID, customerID)

				Expect(err).NotTo(HaveOccurred())
				Expect(result.TransferID).To(Equal("tr_mock_001"))
				Expect(mockProc.transferCalls).To(Equal(1))
				Expect(alertRepo.count()).To(Equal(1))
			})
		})
	})

	Describe("DeclineBooking", func() {
		Context("when the assigned provider declines a pending booking", func() {
			BeforeEach(func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusPending, bookingdm.PaymentStatusFundsHeld, 4500)
			})

			It("should refund the customer in full and close the booking", func() {
				result, err := service.DeclineBooking(ctx, bookingID, providerID, booking.DeclineBookingDTO{Reason: "fully booked that week"})

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status).To(Equal(bookingdm.StatusDeclined))
				Expect(result.PaymentStatus).To(Equal(bookingdm.PaymentStatusRefunded))
				Expect(result.Reason).To(Equal("fully booked that week"))

				Expect(mockProc.refundCalls).To(Equal(1))
				Expect(mockProc.lastRefund.PaymentIntentID).To(Equal("pi_test_001"))
			})

			It("should notify the customer", func() {
				_, err := service.DeclineBooking(ctx, bookingID, providerID, booking.DeclineBookingDTO{})

				Expect(err).NotTo(HaveOccurred())
				Expect(notifier.sent).To(HaveLen(1))
				Expect(notifier.sent[0].UserID).To(Equal(customerID))
			})
		})

		Context("when someone other than the assigned provider declines", func() {
			It("should return forbidden without refunding", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusPending, bookingdm.PaymentStatusFundsHeld, 4500)

				_, err := service.DeclineBooking(ctx, bookingID, providerID+1, booking.DeclineBookingDTO{})

				Expect(err).To(Equal(apperrors.ErrUnauthorizedAccess))
				Expect(mockProc.refundCalls).To(Equal(0))
			})
		})

		Context("when the booking is no longer pending", func() {
			It("should reject an in-progress booking", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusInProgress, bookingdm.PaymentStatusFundsHeld, 4500)

				_, err := service.DeclineBooking(ctx, bookingID, providerID, booking.DeclineBookingDTO{})

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidBookingState))
				Expect(mockProc.refundCalls).To(Equal(0))
			})
		})

		Context("when the decline is replayed", func() {
			It("should return the recorded result without a second refund", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusPending, bookingdm.PaymentStatusFundsHeld, 4500)

				first, err := service.DeclineBooking(ctx, bookingID, providerID, booking.DeclineBookingDTO{Reason: "cannot travel"})
				Expect(err).NotTo(HaveOccurred())

				second, err := service.DeclineBooking(ctx, bookingID, providerID, booking.DeclineBookingDTO{Reason: "cannot travel"})

				Expect(err).NotTo(HaveOccurred())
				Expect(second.Reason).To(Equal(first.Reason))
				Expect(mockProc.refundCalls).To(Equal(1))
			})
		})

		Context("when the refund fails", func() {
			It("should leave the booking pending", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusPending, bookingdm.PaymentStatusFundsHeld, 4500)
				mockProc.refundError = errors.New("intent already captured")

				_, err := service.DeclineBooking(ctx, bookingID, providerID, booking.DeclineBookingDTO{})

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeRefundFailed))

				b, _ := mockRepo.GetByID(bookingID)
				Expect(b.Status).To(Equal(bookingdm.StatusPending))
			})
		})

		Context("when the reason is too long", func() {
			It("should reject before any side effect", func() {
				mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusPending, bookingdm.PaymentStatusFundsHeld, 4500)

				longReason := make([]byte, 501)
				for i := range longReason {
					longReason[i] = 'x'
				}

				_, err := service.DeclineBooking(ctx, bookingID, providerID, booking.DeclineBookingDTO{Reason: string(longReason)})

				Expect(err).To(HaveOccurred())
				Expect(mockProc.refundCalls).To(Equal(0))
			})
		})
	})

	Describe("GetBooking", func() {
		BeforeEach(func() {
			mockRepo.bookings[bookingID] = newBooking(bookingdm.StatusConfirmed, bookingdm.PaymentStatusFundsHeld, 10000)
		})

		It("should allow the customer", func() {
			b, err := service.GetBooking(bookingID, customerID)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.ID).To(Equal(bookingID))
		})

		It("should allow the provider", func() {
			b, err := service.GetBooking(bookingID, providerID)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.ID).To(Equal(bookingID))
		})

		It("should reject third parties", func() {
			_, err := service.GetBooking(bookingID, int64(999))
			Expect(err).To(Equal(apperrors.ErrUnauthorizedAccess))
		})
	})
})

var _ = Describe("SplitPayment", func() {
	It("should split an even total exactly", func() {
		commission, payout := booking.SplitPayment(10000, 10)
		Expect(commission).To(Equal(int64(1000)))
		Expect(payout).To(Equal(int64(9000)))
	})

	It("should round the commission half up", func() {
		commission, payout := booking.SplitPayment(9999, 10)
		Expect(commission).To(Equal(int64(1000)))
		Expect(payout).To(Equal(int64(8999)))
	})

	It("should always preserve the total", func() {
		for _, total := range []int64{1, 33, 99, 101, 4567, 9999, 123456} {
			commission, payout := booking.SplitPayment(total, 15)
			Expect(commission + payout).To(Equal(total))
		}
	})

	It("should give everything to the provider at zero commission", func() {
		commission, payout := booking.SplitPayment(5000, 0)
		Expect(commission).To(Equal(int64(0)))
		Expect(payout).To(Equal(int64(5000)))
	})
})
