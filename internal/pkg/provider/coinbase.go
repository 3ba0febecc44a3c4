package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/inkwell/inkwell-api/internal/pkg/coinbase"
)

// CoinbaseAdapter is the alternate crypto backend, using Coinbase Commerce
// hosted charges
type CoinbaseAdapter struct {
	client        *coinbase.Client
	webhookSecret string
}

// NewCoinbaseAdapter creates a stateless adapter around the Commerce client
func NewCoinbaseAdapter(cfg coinbase.Config) *CoinbaseAdapter {
	return &CoinbaseAdapter{
		client:        coinbase.NewClient(cfg),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (a *CoinbaseAdapter) Name() string { return NameCoinbase }

func (a *CoinbaseAdapter) Initialize(ctx context.Context, req InitRequest) (*InitResponse, error) {
	meta := map[string]string{"reference": req.Reference}
	for k, v := range req.Metadata {
		meta[k] = v
	}

	resp, err := a.client.CreateCharge(ctx, coinbase.CreateChargeRequest{
		Name:        "Inkwell payment",
		PricingType: "fixed_price",
		LocalPrice: coinbase.Money{
			Amount:   strconv.FormatFloat(req.Amount, 'f', -1, 64),
			Currency: req.Currency,
		},
		Metadata:    meta,
		RedirectURL: req.CallbackURL,
	})
	if err != nil {
		return nil, &InitError{Provider: NameCoinbase, Err: err}
	}

	return &InitResponse{
		CheckoutURL:       resp.HostedURL,
		ProviderReference: resp.Code,
	}, nil
}

// Verify expects the Commerce charge code, persisted as the provider
// reference at initialization time.
func (a *CoinbaseAdapter) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	charge, err := a.client.GetCharge(ctx, reference)
	if err != nil {
		return nil, err
	}

	amount, _ := strconv.ParseFloat(charge.Pricing.Local.Amount, 64)
	return &VerifyResult{
		Status:    normalizeCoinbaseStatus(charge.LatestStatus()),
		Amount:    amount,
		Currency:  charge.Pricing.Local.Currency,
		Reference: charge.Metadata["reference"],
	}, nil
}

func (a *CoinbaseAdapter) VerifyWebhookSignature(headers http.Header, body []byte) bool {
	return coinbase.VerifySignature(body, headers.Get(coinbase.SignatureHeader), a.webhookSecret)
}

func (a *CoinbaseAdapter) ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	event, err := coinbase.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	charge := event.Event.Data
	amount, _ := strconv.ParseFloat(charge.Pricing.Local.Amount, 64)

	status := StatusPending
	switch event.Event.Type {
	case "charge:confirmed", "charge:resolved":
		status = StatusSuccess
	case "charge:failed":
		status = StatusFailed
	}

	return &WebhookEvent{
		Type:              event.Event.Type,
		Reference:         charge.Metadata["reference"],
		ProviderReference: charge.Code,
		Status:            status,
		Amount:            amount,
		Currency:          charge.Pricing.Local.Currency,
		UserID:            charge.Metadata["userId"],
		ExternalHash:      charge.Code,
		Raw:               json.RawMessage(body),
	}, nil
}

func normalizeCoinbaseStatus(s string) Status {
	switch s {
	case "COMPLETED", "RESOLVED":
		return StatusSuccess
	case "EXPIRED", "CANCELED":
		return StatusFailed
	default:
		return StatusPending
	}
}
