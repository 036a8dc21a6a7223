package processor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types the payout ledger reacts to. Anything else is
// acknowledged and ignored.
const (
	EventTransferCompleted = "transfer.completed"
	EventTransferFailed    = "transfer.failed"
)

// DefaultSignatureTolerance bounds how stale a signed timestamp may be
// before the webhook is rejected as a possible replay.
const DefaultSignatureTolerance = 5 * time.Minute

// WebhookEvent is the decoded envelope of a processor notification.
type WebhookEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	TransferID string
	Reason     string
}

type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			FailureReason string `json:"failure_reason"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyWebhookSignature checks the `t=<unix>,v1=<hex>` signature header
// against HMAC-SHA256 of "<t>.<payload>" using the shared webhook secret,
// and rejects timestamps outside the tolerance window.
func (c *Client) VerifyWebhookSignature(payload []byte, header string, now time.Time) error {
	var timestamp string
	var signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid signature timestamp: %w", err)
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > DefaultSignatureTolerance || age < -DefaultSignatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// ParseWebhookEvent decodes a verified payload into the internal event
// shape. Unknown event types decode fine; the caller decides to skip them.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw webhookPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &WebhookEvent{
		ID:         raw.ID,
		Type:       raw.Type,
		TransferID: raw.Data.Object.ID,
		Reason:     raw.Data.Object.FailureReason,
	}, nil
}

// SignWebhookPayload produces the signature header for a payload at the
// given time. Exported for the seed/test tooling that emits synthetic
// processor events.
func (c *Client) SignWebhookPayload(payload []byte, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}
