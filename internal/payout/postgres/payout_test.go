package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	payoutdm "github.com/handyhub/booking-payments/internal/core/datamodel/payout"
	"github.com/handyhub/booking-payments/internal/payout"
)

func TestPayoutRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PayoutRepository Suite")
}

type SQLitePayout struct {
	ID         int64      `gorm:"primaryKey"`
	BookingID  int64      `gorm:"column:booking_id;not null;uniqueIndex"`
	ProviderID int64      `gorm:"column:provider_id;not null"`
	TransferID string     `gorm:"column:transfer_id;not null"`
	Amount     int64      `gorm:"column:amount;not null"`
	Currency   string     `gorm:"column:currency;not null"`
	Status     string     `gorm:"column:status;default:'pending'"`
	PayoutDate time.Time  `gorm:"column:payout_date"`
	SettledAt  *time.Time `gorm:"column:settled_at"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

func (SQLitePayout) TableName() string {
	return "provider_payouts"
}

var _ = Describe("PayoutRepository", func() {
	var (
		db   *gorm.DB
		repo payout.Repository
	)

	newPayout := func(bookingID, providerID int64, transferID string, amount int64, payoutDate time.Time) *payoutdm.ProviderPayout {
		return &payoutdm.ProviderPayout{
			BookingID:  bookingID,
			ProviderID: providerID,
			TransferID: transferID,
			Amount:     amount,
			Currency:   "GBP",
			Status:     payoutdm.StatusPending,
			PayoutDate: payoutDate,
			CreatedAt:  time.Now(),
		}
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLitePayout{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewPayoutRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).NotTo(HaveOccurred())
	})

	Describe("Create", func() {
		It("should persist a payout row", func() {
			err := repo.Create(newPayout(10, 2, "tr_001", 9000, time.Now()))
			Expect(err).NotTo(HaveOccurred())

			p, err := repo.GetByBookingID(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.TransferID).To(Equal("tr_001"))
			Expect(p.Amount).To(Equal(int64(9000)))
			Expect(p.Status).To(Equal(payoutdm.StatusPending))
		})

		It("should reject a second row for the same booking", func() {
			Expect(repo.Create(newPayout(10, 2, "tr_001", 9000, time.Now()))).NotTo(HaveOccurred())

			err := repo.Create(newPayout(10, 2, "tr_002", 9000, time.Now()))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetByTransferID", func() {
		It("should find the row for a processor transfer", func() {
			Expect(repo.Create(newPayout(10, 2, "tr_001", 9000, time.Now()))).NotTo(HaveOccurred())

			p, err := repo.GetByTransferID("tr_001")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.BookingID).To(Equal(int64(10)))
		})

		It("should error for an unknown transfer", func() {
			_, err := repo.GetByTransferID("tr_missing")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ListByProvider", func() {
		It("should return newest payouts first and respect paging", func() {
			base := time.Now().Add(-3 * time.Hour)
			Expect(repo.Create(newPayout(10, 2, "tr_001", 1000, base))).NotTo(HaveOccurred())
			Expect(repo.Create(newPayout(11, 2, "tr_002", 2000, base.Add(time.Hour)))).NotTo(HaveOccurred())
			Expect(repo.Create(newPayout(12, 2, "tr_003", 3000, base.Add(2*time.Hour)))).NotTo(HaveOccurred())
			Expect(repo.Create(newPayout(13, 9, "tr_004", 4000, base))).NotTo(HaveOccurred())

			payouts, err := repo.ListByProvider(2, 2, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(payouts).To(HaveLen(2))
			Expect(payouts[0].TransferID).To(Equal("tr_003"))
			Expect(payouts[1].TransferID).To(Equal("tr_002"))

			payouts, err = repo.ListByProvider(2, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(payouts).To(HaveLen(1))
			Expect(payouts[0].TransferID).To(Equal("tr_001"))
		})
	})

	Describe("TotalForProvider", func() {
		It("should sum only the provider's payouts", func() {
			Expect(repo.Create(newPayout(10, 2, "tr_001", 1000, time.Now()))).NotTo(HaveOccurred())
			Expect(repo.Create(newPayout(11, 2, "tr_002", 2500, time.Now()))).NotTo(HaveOccurred())
			Expect(repo.Create(newPayout(12, 9, "tr_003", 9999, time.Now()))).NotTo(HaveOccurred())

			total, err := repo.TotalForProvider(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(3500)))
		})

		It("should return zero for a provider with no payouts", func() {
			total, err := repo.TotalForProvider(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(0)))
		})
	})

	Describe("MarkSettledByTransferID", func() {
		It("should settle a pending payout once", func() {
			Expect(repo.Create(newPayout(10, 2, "tr_001", 9000, time.Now()))).NotTo(HaveOccurred())

			rows, err := repo.MarkSettledByTransferID("tr_001", time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))

			p, _ := repo.GetByTransferID("tr_001")
			Expect(p.Status).To(Equal(payoutdm.StatusCompleted))
			Expect(p.SettledAt).NotTo(BeNil())

			// Already completed, the status guard skips it
			rows, err = repo.MarkSettledByTransferID("tr_001", time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(0)))
		})

		It("should affect zero rows for an unknown transfer", func() {
			rows, err := repo.MarkSettledByTransferID("tr_missing", time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(0)))
		})
	})
})
