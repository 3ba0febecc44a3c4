package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Status is the unified outcome vocabulary every adapter normalizes into
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// Adapter names as persisted on transactions
const (
	NamePaystack    = "paystack"
	NameFlutterwave = "flutterwave"
	NameNowPayments = "nowpayments"
	NameCoinbase    = "coinbase"
)

// ErrUnknownProvider is returned when a persisted provider name does not
// resolve to a registered adapter. Fatal to the single request, not the process.
var ErrUnknownProvider = errors.New("unknown payment provider")

// InitError wraps any failure to start a charge with a processor
type InitError struct {
	Provider string
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s initialization failed: %v", e.Provider, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// InitRequest carries everything an adapter needs to start a charge.
// Amount is in major units; adapters convert to subunits where required.
type InitRequest struct {
	Email       string
	Amount      float64
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    map[string]string
}

// InitResponse is what the caller redirects the payer with. CheckoutURL is
// set for hosted flows, PayAddress for direct crypto deposits.
type InitResponse struct {
	CheckoutURL       string
	PayAddress        string
	ProviderReference string
}

// VerifyResult is a polled transaction state
type VerifyResult struct {
	Status    Status
	Amount    float64
	Currency  string
	Reference string
}

// WebhookEvent is a processor callback normalized into the unified vocabulary
type WebhookEvent struct {
	Type              string
	Reference         string
	ProviderReference string
	Status            Status
	Amount            float64
	Currency          string
	UserID            string
	ExternalHash      string
	Raw               json.RawMessage
}

// Adapter is the uniform contract every payment processor implements.
// Initialize must not retry internally; retry policy belongs to the caller.
// VerifyWebhookSignature must be given the raw request bytes as received,
// never a re-serialized body.
type Adapter interface {
	Name() string
	Initialize(ctx context.Context, req InitRequest) (*InitResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	VerifyWebhookSignature(headers http.Header, body []byte) bool
	ParseWebhookEvent(body []byte) (*WebhookEvent, error)
}
