package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/google/uuid"
)

const (
	SignatureHeader = "X-Settlement-Signature"
	MessageIDHeader = "X-Message-ID"
	userAgent       = "SettlementEngine-Webhook/1.0"
)

// WebhookDispatcher posts notifications as signed JSON to a delivery service.
// 2xx is DELIVERED, other 4xx is REJECTED, 5xx and transport errors are FAILED.
type WebhookDispatcher struct {
	url    string
	secret []byte
	client *http.Client
}

var _ portssvc.NotificationDispatcher = (*WebhookDispatcher)(nil)

func NewWebhookDispatcher(url, secret string, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookDispatcher{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: timeout},
	}
}

type webhookAck struct {
	MessageID string `json:"messageID"`
	Reason    string `json:"reason"`
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (d *WebhookDispatcher) Send(ctx context.Context, n domain.Notification) (domain.DeliveryResult, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return domain.DeliveryResult{Status: domain.DeliveryFailed, Reason: "unencodable payload"}, fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return domain.DeliveryResult{Status: domain.DeliveryFailed, Reason: "bad webhook url"}, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if len(d.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(d.secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.DeliveryResult{Status: domain.DeliveryFailed, Reason: "delivery service unreachable"}, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	var ack webhookAck
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &ack)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		messageID := resp.Header.Get(MessageIDHeader)
		if messageID == "" {
			messageID = ack.MessageID
		}
		if messageID == "" {
			messageID = uuid.NewString()
		}
		return domain.DeliveryResult{Status: domain.DeliveryDelivered, MessageID: messageID}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		reason := ack.Reason
		if reason == "" {
			reason = fmt.Sprintf("rejected with status %d", resp.StatusCode)
		}
		return domain.DeliveryResult{Status: domain.DeliveryRejected, Reason: reason}, nil
	default:
		return domain.DeliveryResult{Status: domain.DeliveryFailed, Reason: fmt.Sprintf("status %d", resp.StatusCode)},
			fmt.Errorf("delivery service returned %d", resp.StatusCode)
	}
}
