package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds Flutterwave API configuration
type Config struct {
	BaseURL   string
	SecretKey string
	// VerifHash is the shared secret echoed back in the verif-hash webhook header
	VerifHash string
	Timeout   time.Duration
}

// Client represents Flutterwave payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// CreatePaymentRequest represents a standard (hosted) payment request
type CreatePaymentRequest struct {
	TxRef       string            `json:"tx_ref"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Customer    Customer          `json:"customer"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Customer identifies the paying user
type Customer struct {
	Email string `json:"email"`
}

// CreatePaymentResponse holds the hosted checkout link
type CreatePaymentResponse struct {
	Link string `json:"link"`
}

// VerifyResponse represents a verified transaction
type VerifyResponse struct {
	ID       int64   `json:"id"`
	TxRef    string  `json:"tx_ref"`
	FlwRef   string  `json:"flw_ref"`
	Status   string  `json:"status"` // successful, failed, pending
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type apiEnvelope struct {
	Status  string          `json:"status"` // success / error
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient creates new Flutterwave API client
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

// CreatePayment creates a hosted payment and returns the checkout link
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	if strings.TrimSpace(req.TxRef) == "" {
		return nil, fmt.Errorf("validation error: tx_ref must be non-empty")
	}
	if strings.TrimSpace(req.Amount) == "" {
		return nil, fmt.Errorf("validation error: amount must be non-empty")
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return nil, fmt.Errorf("validation error: customer email must be non-empty")
	}

	data, err := c.call(ctx, http.MethodPost, "/v3/payments", req)
	if err != nil {
		return nil, err
	}

	var out CreatePaymentResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse flutterwave response: %w", err)
	}
	return &out, nil
}

// VerifyByReference fetches transaction state by our tx_ref
func (c *Client) VerifyByReference(ctx context.Context, txRef string) (*VerifyResponse, error) {
	if strings.TrimSpace(txRef) == "" {
		return nil, fmt.Errorf("validation error: tx_ref must be non-empty")
	}

	path := "/v3/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(txRef)
	data, err := c.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out VerifyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse flutterwave response: %w", err)
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("flutterwave client is not initialized")
	}
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return nil, fmt.Errorf("flutterwave config error: secret_key is empty")
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	if base == "" {
		base = "https://api.flutterwave.com"
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode flutterwave request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, fmt.Errorf("flutterwave api call failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.SecretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("flutterwave api call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("flutterwave api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("flutterwave api returned non-2xx status: %d, body: %s", resp.StatusCode, string(raw))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse flutterwave response: %w", err)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("flutterwave rejected request: %s", envelope.Message)
	}
	return envelope.Data, nil
}
