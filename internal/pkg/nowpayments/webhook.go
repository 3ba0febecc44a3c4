package nowpayments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// SignatureHeader carries the HMAC-SHA512 IPN signature
const SignatureHeader = "x-nowpayments-sig"

// IPNEvent represents a NOWPayments instant payment notification
type IPNEvent struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PriceAmount   float64     `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
	PayAmount     float64     `json:"pay_amount"`
	PayCurrency   string      `json:"pay_currency"`
	OrderID       string      `json:"order_id"`
	PayinHash     string      `json:"payin_hash"`
}

// VerifySignature validates the IPN signature. NOWPayments signs the JSON
// body re-serialized with keys sorted alphabetically, so the raw bytes are
// first normalized through a key-sorted marshal before the HMAC.
func VerifySignature(payload []byte, signature string, ipnKey string) bool {
	if ipnKey == "" || signature == "" {
		return false
	}

	sorted, err := sortedJSON(payload)
	if err != nil {
		return false
	}

	h := hmac.New(sha512.New, []byte(ipnKey))
	h.Write(sorted)
	expected := h.Sum(nil)

	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(given, expected)
}

// GenerateSignature creates an IPN signature for testing
func GenerateSignature(payload []byte, ipnKey string) string {
	if ipnKey == "" {
		return ""
	}
	sorted, err := sortedJSON(payload)
	if err != nil {
		return ""
	}
	h := hmac.New(sha512.New, []byte(ipnKey))
	h.Write(sorted)
	return hex.EncodeToString(h.Sum(nil))
}

// ParseIPN decodes a raw IPN body
func ParseIPN(payload []byte) (*IPNEvent, error) {
	var event IPNEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid nowpayments ipn payload: %w", err)
	}
	if event.OrderID == "" {
		return nil, fmt.Errorf("nowpayments ipn missing order_id")
	}
	return &event, nil
}

// sortedJSON re-marshals a JSON object with its top-level keys in
// alphabetical order, matching the signature base NOWPayments uses.
func sortedJSON(payload []byte) ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, m[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}
