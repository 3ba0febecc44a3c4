package nowpayments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds NOWPayments API configuration
type Config struct {
	BaseURL string
	APIKey  string
	// IPNKey signs instant-payment-notification callbacks
	IPNKey  string
	Timeout time.Duration
}

// Client represents NOWPayments crypto gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// CreatePaymentRequest creates a crypto payment for a fiat-priced order
type CreatePaymentRequest struct {
	PriceAmount      float64 `json:"price_amount"`
	PriceCurrency    string  `json:"price_currency"`
	PayCurrency      string  `json:"pay_currency,omitempty"`
	OrderID          string  `json:"order_id"`
	OrderDescription string  `json:"order_description,omitempty"`
	IPNCallbackURL   string  `json:"ipn_callback_url,omitempty"`
}

// CreatePaymentResponse holds the deposit address the payer sends funds to
type CreatePaymentResponse struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PayAddress    string      `json:"pay_address"`
	PayAmount     float64     `json:"pay_amount"`
	PayCurrency   string      `json:"pay_currency"`
	OrderID       string      `json:"order_id"`
}

// PaymentStatusResponse represents a polled payment state
type PaymentStatusResponse struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"` // waiting, confirming, confirmed, sending, partially_paid, finished, failed, refunded, expired
	PriceAmount   float64     `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
	OrderID       string      `json:"order_id"`
	PayinHash     string      `json:"payin_hash"`
}

// NewClient creates new NOWPayments API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// CreatePayment creates a payment and returns the pay-in address
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	if req.PriceAmount <= 0 {
		return nil, fmt.Errorf("validation error: price_amount must be > 0")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, fmt.Errorf("validation error: order_id must be non-empty")
	}

	raw, err := c.call(ctx, http.MethodPost, "/v1/payment", req)
	if err != nil {
		return nil, err
	}

	var out CreatePaymentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse nowpayments response: %w", err)
	}
	return &out, nil
}

// PaymentStatus polls the current payment state
func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (*PaymentStatusResponse, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, fmt.Errorf("validation error: payment_id must be non-empty")
	}

	raw, err := c.call(ctx, http.MethodGet, "/v1/payment/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var out PaymentStatusResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse nowpayments response: %w", err)
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("nowpayments client is not initialized")
	}
	if strings.TrimSpace(c.config.APIKey) == "" {
		return nil, fmt.Errorf("nowpayments config error: api_key is empty")
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	if base == "" {
		base = "https://api.nowpayments.io"
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode nowpayments request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, fmt.Errorf("nowpayments api call failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nowpayments api call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nowpayments api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("nowpayments api returned non-2xx status: %d, body: %s", resp.StatusCode, string(raw))
	}

	return raw, nil
}
