package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/inkwell/inkwell-api/internal/pkg/paystack"
)

// PaystackAdapter handles NGN and other West African fiat rails
type PaystackAdapter struct {
	client    *paystack.Client
	secretKey string
}

// NewPaystackAdapter creates a stateless adapter around the Paystack client
func NewPaystackAdapter(cfg paystack.Config) *PaystackAdapter {
	return &PaystackAdapter{
		client:    paystack.NewClient(cfg),
		secretKey: cfg.SecretKey,
	}
}

func (a *PaystackAdapter) Name() string { return NamePaystack }

func (a *PaystackAdapter) Initialize(ctx context.Context, req InitRequest) (*InitResponse, error) {
	resp, err := a.client.Initialize(ctx, paystack.InitializeRequest{
		Email:       req.Email,
		Amount:      paystack.ToSubunits(req.Amount),
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, &InitError{Provider: NamePaystack, Err: err}
	}

	return &InitResponse{
		CheckoutURL:       resp.AuthorizationURL,
		ProviderReference: resp.Reference,
	}, nil
}

func (a *PaystackAdapter) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	resp, err := a.client.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Status:    normalizePaystackStatus(resp.Status),
		Amount:    paystack.FromSubunits(resp.Amount),
		Currency:  resp.Currency,
		Reference: resp.Reference,
	}, nil
}

func (a *PaystackAdapter) VerifyWebhookSignature(headers http.Header, body []byte) bool {
	return paystack.VerifySignature(body, headers.Get(paystack.SignatureHeader), a.secretKey)
}

func (a *PaystackAdapter) ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	event, err := paystack.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	out := &WebhookEvent{
		Type:         event.Event,
		Reference:    event.Data.Reference,
		Status:       normalizePaystackStatus(event.Data.Status),
		Amount:       paystack.FromSubunits(event.Data.Amount),
		Currency:     event.Data.Currency,
		ExternalHash: strconv.FormatInt(event.Data.ID, 10),
		Raw:          json.RawMessage(body),
	}
	if event.Event == "charge.success" {
		out.Status = StatusSuccess
	}

	// userId travels in the metadata we attached at initialization
	if len(event.Data.Metadata) > 0 {
		var meta map[string]string
		if err := json.Unmarshal(event.Data.Metadata, &meta); err == nil {
			out.UserID = meta["userId"]
		}
	}
	return out, nil
}

func normalizePaystackStatus(s string) Status {
	switch s {
	case "success":
		return StatusSuccess
	case "failed", "abandoned", "reversed":
		return StatusFailed
	default:
		return StatusPending
	}
}
