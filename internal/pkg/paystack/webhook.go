package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignatureHeader carries the HMAC-SHA512 signature of the raw body
const SignatureHeader = "x-paystack-signature"

// WebhookEvent represents a Paystack webhook payload
type WebhookEvent struct {
	Event string `json:"event"` // e.g. charge.success
	Data  struct {
		Reference string          `json:"reference"`
		Status    string          `json:"status"`
		Amount    int64           `json:"amount"` // subunits
		Currency  string          `json:"currency"`
		ID        int64           `json:"id"`
		Metadata  json.RawMessage `json:"metadata"`
	} `json:"data"`
}

// VerifySignature validates the HMAC-SHA512 signature over the raw body.
// The raw bytes must be used as received; re-serialized JSON will not match.
func VerifySignature(payload []byte, signature string, secretKey string) bool {
	if secretKey == "" || signature == "" {
		return false
	}

	h := hmac.New(sha512.New, []byte(secretKey))
	h.Write(payload)
	expected := h.Sum(nil)

	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(given, expected)
}

// GenerateSignature creates an HMAC-SHA512 signature for testing
func GenerateSignature(payload []byte, secretKey string) string {
	if secretKey == "" {
		return ""
	}

	h := hmac.New(sha512.New, []byte(secretKey))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ParseWebhook decodes a raw webhook body
func ParseWebhook(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid paystack webhook payload: %w", err)
	}
	if event.Data.Reference == "" {
		return nil, fmt.Errorf("paystack webhook missing reference")
	}
	return &event, nil
}
