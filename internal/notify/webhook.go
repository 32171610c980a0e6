package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mysqft/leadcapture/internal/core"
)

const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

// Envelope is the JSON body posted to a tenant's generic webhook.
type Envelope struct {
	Event   string      `json:"event"`
	Company string      `json:"company"`
	Lead    core.Fields `json:"lead"`
}

// Sign returns hex(HMAC-SHA256(secret, timestamp || body)).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature over the exact received bytes and
// compares it in constant time.
func VerifySignature(secret, timestamp string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(Sign(secret, timestamp, body))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

type webhookSender struct {
	client *resty.Client
}

func (w *webhookSender) send(ctx context.Context, url, secret string, env Envelope, at time.Time) error {
	// encoding/json sorts map keys, so the same lead always yields the same bytes.
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode webhook body: %w", err)
	}

	timestamp := strconv.FormatInt(at.Unix(), 10)

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderSignature, Sign(secret, timestamp, body)).
		SetHeader(HeaderTimestamp, timestamp).
		SetBody(body).
		Post(url)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode())
	}
	return nil
}
