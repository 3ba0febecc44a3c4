package flutterwave

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
)

// SignatureHeader carries the shared webhook secret verbatim
const SignatureHeader = "verif-hash"

// WebhookEvent represents a Flutterwave webhook payload
type WebhookEvent struct {
	Event string `json:"event"` // e.g. charge.completed
	Data  struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		FlwRef   string  `json:"flw_ref"`
		Status   string  `json:"status"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"data"`
}

// VerifySignature checks the verif-hash header against the configured shared
// secret. Flutterwave does not sign the body; the header value itself is the
// secret, so a constant-time equality check is the whole scheme.
func VerifySignature(signature string, verifHash string) bool {
	if verifHash == "" || signature == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(signature), []byte(verifHash)) == 1
}

// ParseWebhook decodes a raw webhook body
func ParseWebhook(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid flutterwave webhook payload: %w", err)
	}
	if event.Data.TxRef == "" {
		return nil, fmt.Errorf("flutterwave webhook missing tx_ref")
	}
	return &event, nil
}
