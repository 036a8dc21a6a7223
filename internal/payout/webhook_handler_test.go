package payout_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	payoutdm "github.com/handyhub/booking-payments/internal/core/datamodel/payout"
	"github.com/handyhub/booking-payments/internal/payout"
	"github.com/handyhub/booking-payments/internal/processor"
	"github.com/handyhub/booking-payments/internal/reconciliation"
	"github.com/handyhub/booking-payments/internal/transport"
)

var _ = Describe("Processor Webhook Handler", func() {
	var (
		repo      *mockPayoutRepository
		alertRepo *mockAlertRepository
		signer    *processor.Client
		handler   *payout.WebhookHandler
	)

	postEvent := func(payload []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(payload))
		req.Header.Set("Processor-Signature", signature)
		rec := httptest.NewRecorder()
		handler.HandleProcessorWebhook(rec, req)
		return rec
	}

	transferEvent := func(eventType, transferID string) []byte {
		return []byte(fmt.Sprintf(
			`{"id":"evt_1","type":"%s","data":{"object":{"id":"%s","failure_reason":"account_closed"}}}`,
			eventType, transferID))
	}

	BeforeEach(func() {
		repo = newMockPayoutRepository()
		alertRepo = &mockAlertRepository{}
		logger := slog.Default()

		reconService := reconciliation.NewService(alertRepo, nil, logger)
		payoutService := payout.NewService(repo, reconService, logger)

		signer = processor.NewClient(processor.Config{
			BaseURL:       "http://processor.test",
			SecretKey:     "sk_test",
			WebhookSecret: "whsec_test",
			Currency:      "GBP",
		}, logger)

		handler = payout.NewWebhookHandler(transport.NewBaseHandler(logger), payoutService, signer, logger)
	})

	It("should settle the payout on a signed transfer.completed event", func() {
		Expect(repo.Create(&payoutdm.ProviderPayout{
			BookingID:  10,
			ProviderID: 2,
			TransferID: "tr_001",
			Amount:     9000,
			Currency:   "GBP",
			Status:     payoutdm.StatusPending,
		})).NotTo(HaveOccurred())

		payload := transferEvent(processor.EventTransferCompleted, "tr_001")
		rec := postEvent(payload, signer.SignWebhookPayload(payload, time.Now()))

		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp payout.WebhookResponse
		Expect(json.NewDecoder(rec.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Status).To(Equal("processed"))

		p, _ := repo.GetByTransferID("tr_001")
		Expect(p.Status).To(Equal(payoutdm.StatusCompleted))
	})

	It("should raise an alert on a transfer.failed event", func() {
		Expect(repo.Create(&payoutdm.ProviderPayout{
			BookingID:  10,
			ProviderID: 2,
			TransferID: "tr_001",
			Amount:     9000,
			Currency:   "GBP",
			Status:     payoutdm.StatusPending,
		})).NotTo(HaveOccurred())

		payload := transferEvent(processor.EventTransferFailed, "tr_001")
		rec := postEvent(payload, signer.SignWebhookPayload(payload, time.Now()))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(alertRepo.count()).To(Equal(1))
		Expect(alertRepo.last().BookingID).To(Equal(int64(10)))
	})

	It("should reject a missing or invalid signature", func() {
		payload := transferEvent(processor.EventTransferCompleted, "tr_001")

		rec := postEvent(payload, "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))

		rec = postEvent(payload, "t=123,v1=deadbeef")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should reject a signature over a different payload", func() {
		signed := transferEvent(processor.EventTransferCompleted, "tr_001")
		tampered := transferEvent(processor.EventTransferCompleted, "tr_999")

		rec := postEvent(tampered, signer.SignWebhookPayload(signed, time.Now()))
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should reject an unparseable signed payload", func() {
		payload := []byte(`{not json`)
		rec := postEvent(payload, signer.SignWebhookPayload(payload, time.Now()))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should ack unknown event types without side effects", func() {
		payload := []byte(`{"id":"evt_9","type":"payout.paid","data":{"object":{"id":"po_1"}}}`)
		rec := postEvent(payload, signer.SignWebhookPayload(payload, time.Now()))

		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp payout.WebhookResponse
		Expect(json.NewDecoder(rec.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Status).To(Equal("ignored"))
		Expect(alertRepo.count()).To(Equal(0))
	})
})
