package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignatureHeader carries the HMAC-SHA256 signature of the raw body
const SignatureHeader = "X-CC-Webhook-Signature"

// WebhookEvent represents a Coinbase Commerce webhook payload
type WebhookEvent struct {
	Event struct {
		Type string `json:"type"` // charge:created, charge:confirmed, charge:failed
		Data Charge `json:"data"`
	} `json:"event"`
}

// VerifySignature validates the HMAC-SHA256 signature over the raw body
func VerifySignature(payload []byte, signature string, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	expected := h.Sum(nil)

	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(given, expected)
}

// GenerateSignature creates an HMAC-SHA256 signature for testing
func GenerateSignature(payload []byte, secret string) string {
	if secret == "" {
		return ""
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ParseWebhook decodes a raw webhook body
func ParseWebhook(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid coinbase webhook payload: %w", err)
	}
	if event.Event.Type == "" {
		return nil, fmt.Errorf("coinbase webhook missing event type")
	}
	return &event, nil
}
