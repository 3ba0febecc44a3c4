package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/inkwell/inkwell-api/internal/pkg/nowpayments"
)

// NowPaymentsAdapter is the default crypto backend. Payments settle to a
// per-payment deposit address rather than a hosted checkout page.
type NowPaymentsAdapter struct {
	client *nowpayments.Client
	ipnKey string
}

// NewNowPaymentsAdapter creates a stateless adapter around the NOWPayments client
func NewNowPaymentsAdapter(cfg nowpayments.Config) *NowPaymentsAdapter {
	return &NowPaymentsAdapter{
		client: nowpayments.NewClient(cfg),
		ipnKey: cfg.IPNKey,
	}
}

func (a *NowPaymentsAdapter) Name() string { return NameNowPayments }

func (a *NowPaymentsAdapter) Initialize(ctx context.Context, req InitRequest) (*InitResponse, error) {
	resp, err := a.client.CreatePayment(ctx, nowpayments.CreatePaymentRequest{
		PriceAmount:      req.Amount,
		PriceCurrency:    strings.ToLower(req.Currency),
		PayCurrency:      strings.ToLower(req.Currency),
		OrderID:          req.Reference,
		OrderDescription: req.Metadata["description"],
		IPNCallbackURL:   req.CallbackURL,
	})
	if err != nil {
		return nil, &InitError{Provider: NameNowPayments, Err: err}
	}

	return &InitResponse{
		PayAddress:        resp.PayAddress,
		ProviderReference: resp.PaymentID.String(),
	}, nil
}

// Verify expects the NOWPayments payment id, which the caller persists as the
// provider reference at initialization time.
func (a *NowPaymentsAdapter) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	resp, err := a.client.PaymentStatus(ctx, reference)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Status:    normalizeNowPaymentsStatus(resp.PaymentStatus),
		Amount:    resp.PriceAmount,
		Currency:  strings.ToUpper(resp.PriceCurrency),
		Reference: resp.OrderID,
	}, nil
}

func (a *NowPaymentsAdapter) VerifyWebhookSignature(headers http.Header, body []byte) bool {
	return nowpayments.VerifySignature(body, headers.Get(nowpayments.SignatureHeader), a.ipnKey)
}

func (a *NowPaymentsAdapter) ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	event, err := nowpayments.ParseIPN(body)
	if err != nil {
		return nil, err
	}

	return &WebhookEvent{
		Type:              event.PaymentStatus,
		Reference:         event.OrderID,
		ProviderReference: event.PaymentID.String(),
		Status:            normalizeNowPaymentsStatus(event.PaymentStatus),
		Amount:            event.PriceAmount,
		Currency:          strings.ToUpper(event.PriceCurrency),
		ExternalHash:      event.PayinHash,
		Raw:               json.RawMessage(body),
	}, nil
}

func normalizeNowPaymentsStatus(s string) Status {
	switch s {
	case "finished", "confirmed":
		return StatusSuccess
	case "failed", "refunded", "expired":
		return StatusFailed
	default:
		// waiting, confirming, sending, partially_paid
		return StatusPending
	}
}
