package payout

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/handyhub/booking-payments/internal/processor"
	"github.com/handyhub/booking-payments/internal/transport"
)

// SignatureVerifier checks the processor's webhook signature header against
// the raw request body.
type SignatureVerifier interface {
	VerifyWebhookSignature(payload []byte, header string, now time.Time) error
}

type WebhookHandler struct {
	*transport.BaseHandler
	payoutService *Service
	verifier      SignatureVerifier
	logger        *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, payoutService *Service, verifier SignatureVerifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:   baseHandler,
		payoutService: payoutService,
		verifier:      verifier,
		logger:        logger,
	}
}

type WebhookResponse struct {
	Status string `json:"status"`
}

// HandleProcessorWebhook verifies and applies transfer lifecycle events.
// Unknown event types are acknowledged with 200 so the processor stops
// retrying them.
func (h *WebhookHandler) HandleProcessorWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	signature := r.Header.Get("Processor-Signature")
	if err := h.verifier.VerifyWebhookSignature(payload, signature, time.Now()); err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		h.WriteError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	event, err := processor.ParseWebhookEvent(payload)
	if err != nil {
		h.logger.Error("failed to parse webhook payload", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	h.logger.Info("received processor webhook",
		"event_id", event.ID,
		"type", event.Type,
		"transfer_id", event.TransferID)

	switch event.Type {
	case processor.EventTransferCompleted:
		err = h.payoutService.HandleTransferSettled(r.Context(), event.TransferID)
	case processor.EventTransferFailed:
		err = h.payoutService.HandleTransferFailed(r.Context(), event.TransferID, event.Reason)
	default:
		h.logger.Debug("ignoring webhook event type", "type", event.Type)
		h.WriteJSON(w, http.StatusOK, WebhookResponse{Status: "ignored"})
		return
	}

	if err != nil {
		h.logger.Error("failed to process webhook event",
			"error", err,
			"event_id", event.ID,
			"type", event.Type)
		h.WriteError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	h.WriteJSON(w, http.StatusOK, WebhookResponse{Status: "processed"})
}
