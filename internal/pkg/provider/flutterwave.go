package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/inkwell/inkwell-api/internal/pkg/flutterwave"
)

// FlutterwaveAdapter handles the major fiat currencies and acts as the
// catch-all fallback for any fiat currency without a regional match
type FlutterwaveAdapter struct {
	client    *flutterwave.Client
	verifHash string
}

// NewFlutterwaveAdapter creates a stateless adapter around the Flutterwave client
func NewFlutterwaveAdapter(cfg flutterwave.Config) *FlutterwaveAdapter {
	return &FlutterwaveAdapter{
		client:    flutterwave.NewClient(cfg),
		verifHash: cfg.VerifHash,
	}
}

func (a *FlutterwaveAdapter) Name() string { return NameFlutterwave }

func (a *FlutterwaveAdapter) Initialize(ctx context.Context, req InitRequest) (*InitResponse, error) {
	resp, err := a.client.CreatePayment(ctx, flutterwave.CreatePaymentRequest{
		TxRef:       req.Reference,
		Amount:      strconv.FormatFloat(req.Amount, 'f', -1, 64),
		Currency:    req.Currency,
		RedirectURL: req.CallbackURL,
		Customer:    flutterwave.Customer{Email: req.Email},
		Meta:        req.Metadata,
	})
	if err != nil {
		return nil, &InitError{Provider: NameFlutterwave, Err: err}
	}

	return &InitResponse{CheckoutURL: resp.Link}, nil
}

func (a *FlutterwaveAdapter) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	resp, err := a.client.VerifyByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Status:    normalizeFlutterwaveStatus(resp.Status),
		Amount:    resp.Amount,
		Currency:  resp.Currency,
		Reference: resp.TxRef,
	}, nil
}

func (a *FlutterwaveAdapter) VerifyWebhookSignature(headers http.Header, body []byte) bool {
	return flutterwave.VerifySignature(headers.Get(flutterwave.SignatureHeader), a.verifHash)
}

func (a *FlutterwaveAdapter) ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	event, err := flutterwave.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	return &WebhookEvent{
		Type:              event.Event,
		Reference:         event.Data.TxRef,
		ProviderReference: event.Data.FlwRef,
		Status:            normalizeFlutterwaveStatus(event.Data.Status),
		Amount:            event.Data.Amount,
		Currency:          event.Data.Currency,
		ExternalHash:      event.Data.FlwRef,
		Raw:               json.RawMessage(body),
	}, nil
}

func normalizeFlutterwaveStatus(s string) Status {
	switch s {
	case "successful":
		return StatusSuccess
	case "failed", "cancelled":
		return StatusFailed
	default:
		return StatusPending
	}
}
