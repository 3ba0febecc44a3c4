package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// Config holds Paystack API configuration
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client represents Paystack payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// InitializeRequest represents transaction initialization request.
// Paystack expects the amount in currency subunits (kobo for NGN).
type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// InitializeResponse represents transaction initialization response
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResponse represents a verified transaction
type VerifyResponse struct {
	Status    string  `json:"status"` // success, failed, abandoned, ongoing
	Reference string  `json:"reference"`
	Amount    int64   `json:"amount"` // subunits
	Currency  string  `json:"currency"`
	ID        int64   `json:"id"`
	GatewayID string  `json:"-"`
	Fees      float64 `json:"fees"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient creates new Paystack API client
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

// Initialize starts a transaction and returns the hosted checkout URL
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("validation error: email must be non-empty")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}

	data, err := c.call(ctx, http.MethodPost, "/transaction/initialize", req)
	if err != nil {
		return nil, err
	}

	var out InitializeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse paystack response: %w", err)
	}
	return &out, nil
}

// Verify fetches the current state of a transaction by reference.
// Read-only and safe to call repeatedly.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}

	data, err := c.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var out VerifyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse paystack response: %w", err)
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("paystack client is not initialized")
	}
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return nil, fmt.Errorf("paystack config error: secret_key is empty")
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	if base == "" {
		base = "https://api.paystack.co"
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode paystack request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, fmt.Errorf("paystack api call failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.SecretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystack api call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("paystack api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paystack api returned non-2xx status: %d, body: %s", resp.StatusCode, string(raw))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse paystack response: %w", err)
	}
	if !envelope.Status {
		return nil, fmt.Errorf("paystack rejected request: %s", envelope.Message)
	}
	return envelope.Data, nil
}

// ToSubunits converts a major-unit amount to Paystack subunits (kobo)
func ToSubunits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromSubunits converts Paystack subunits back to major units
func FromSubunits(amount int64) float64 {
	return float64(amount) / 100
}
