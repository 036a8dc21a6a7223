package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/handyhub/booking-payments/internal"
)

// TransferRequest moves held funds from the platform balance to a provider's
// connected account. Amount is integer minor units.
type TransferRequest struct {
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
	DestinationAccount string `json:"destination"`
	BookingID          int64  `json:"-"`
}

// TransferResult is the narrow internal shape mapped from the processor's
// response at the boundary; nothing downstream depends on the wire format.
type TransferResult struct {
	ID                 string
	Amount             int64
	DestinationAccount string
}

type RefundRequest struct {
	PaymentIntentID string `json:"payment_intent"`
	Reason          string `json:"reason,omitempty"`
	BookingID       int64  `json:"-"`
}

type RefundResult struct {
	ID     string
	Status string
}

// Error carries the processor's rejection detail for operator diagnosis.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("processor rejected request: status %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	BaseURL        string
	SecretKey      string
	WebhookSecret  string
	Currency       string
	RequestTimeout time.Duration
}

// Client is a thin REST client over the payment processor. Each call is a
// single synchronous request; retries are the caller's responsibility and
// rely on the Idempotency-Key header derived from the booking id.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	secretKey      string
	webhookSecret  string
	currency       string
	requestTimeout time.Duration
	logger         *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        cfg.BaseURL,
		secretKey:      cfg.SecretKey,
		webhookSecret:  cfg.WebhookSecret,
		currency:       cfg.Currency,
		requestTimeout: timeout,
		logger:         logger,
	}
}

// Currency returns the deployment's fixed 3-letter settlement currency.
func (c *Client) Currency() string {
	return c.currency
}

// CreateTransfer moves payout funds to the provider's connected account,
// tagging the call with the booking id as idempotency and correlation
// metadata.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	payload := map[string]interface{}{
		"amount":      req.Amount,
		"currency":    req.Currency,
		"destination": req.DestinationAccount,
		"metadata": map[string]string{
			"booking_id": fmt.Sprintf("%d", req.BookingID),
		},
	}

	c.logger.Info("creating transfer",
		"booking_id", req.BookingID,
		"amount", req.Amount,
		"destination", req.DestinationAccount)

	var resp struct {
		ID          string `json:"id"`
		Amount      int64  `json:"amount"`
		Destination string `json:"destination"`
	}
	idempotencyKey := fmt.Sprintf("transfer-booking-%d", req.BookingID)
	if err := c.post(ctx, "/v1/transfers", idempotencyKey, payload, &resp); err != nil {
		c.logger.Error("transfer failed", "error", err, "booking_id", req.BookingID)
		return nil, err
	}

	c.logger.Info("transfer created",
		"booking_id", req.BookingID,
		"transfer_id", resp.ID,
		"amount", resp.Amount)

	return &TransferResult{
		ID:                 resp.ID,
		Amount:             resp.Amount,
		DestinationAccount: resp.Destination,
	}, nil
}

// CreateRefund issues a full refund against the booking's original payment
// authorization.
func (c *Client) CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	payload := map[string]interface{}{
		"payment_intent": req.PaymentIntentID,
		"metadata": map[string]string{
			"booking_id": fmt.Sprintf("%d", req.BookingID),
		},
	}
	if req.Reason != "" {
		payload["reason"] = req.Reason
	}

	c.logger.Info("creating refund",
		"booking_id", req.BookingID,
		"payment_intent", req.PaymentIntentID)

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	idempotencyKey := fmt.Sprintf("refund-booking-%d", req.BookingID)
	if err := c.post(ctx, "/v1/refunds", idempotencyKey, payload, &resp); err != nil {
		c.logger.Error("refund failed", "error", err, "booking_id", req.BookingID)
		return nil, err
	}

	c.logger.Info("refund created",
		"booking_id", req.BookingID,
		"refund_id", resp.ID,
		"status", resp.Status)

	return &RefundResult{ID: resp.ID, Status: resp.Status}, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, payload interface{}, out interface{}) error {
	ctx, cancel := internal.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &Error{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return string(body)
}
