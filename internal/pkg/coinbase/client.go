package coinbase

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

// Config holds Coinbase Commerce API configuration
type Config struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

// Client represents Coinbase Commerce gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// CreateChargeRequest creates a fixed-price charge
type CreateChargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  Money             `json:"local_price"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

// Money is an amount/currency pair serialized as strings
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Charge represents a Coinbase Commerce charge
type Charge struct {
	Code      string `json:"code"`
	HostedURL string `json:"hosted_url"`
	Timeline  []struct {
		Status string `json:"status"` // NEW, PENDING, COMPLETED, EXPIRED, CANCELED, UNRESOLVED
		Time   string `json:"time"`
	} `json:"timeline"`
	Pricing struct {
		Local Money `json:"local"`
	} `json:"pricing"`
	Metadata map[string]string `json:"metadata"`
}

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates new Coinbase Commerce API client
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

// CreateCharge creates a charge and returns the hosted checkout page
func (c *Client) CreateCharge(ctx context.Context, req CreateChargeRequest) (*Charge, error) {
	if strings.TrimSpace(req.LocalPrice.Amount) == "" {
		return nil, fmt.Errorf("validation error: amount must be non-empty")
	}
	if req.PricingType == "" {
		req.PricingType = "fixed_price"
	}

	data, err := c.call(ctx, http.MethodPost, "/charges", req)
	if err != nil {
		return nil, err
	}

	var out Charge
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse coinbase response: %w", err)
	}
	return &out, nil
}

// GetCharge fetches the current charge state by code
func (c *Client) GetCharge(ctx context.Context, code string) (*Charge, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("validation error: charge code must be non-empty")
	}

	data, err := c.call(ctx, http.MethodGet, "/charges/"+code, nil)
	if err != nil {
		return nil, err
	}

	var out Charge
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse coinbase response: %w", err)
	}
	return &out, nil
}

// LatestStatus returns the most recent timeline status of a charge
func (ch *Charge) LatestStatus() string {
	if len(ch.Timeline) == 0 {
		return ""
	}
	return ch.Timeline[len(ch.Timeline)-1].Status
}

func (c *Client) call(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("coinbase client is not initialized")
	}
	if strings.TrimSpace(c.config.APIKey) == "" {
		return nil, fmt.Errorf("coinbase config error: api_key is empty")
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	if base == "" {
		base = "https://api.commerce.coinbase.com"
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode coinbase request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, fmt.Errorf("coinbase api call failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-CC-Api-Key", c.config.APIKey)
	httpReq.Header.Set("X-CC-Version", "2018-03-22")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("coinbase api call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coinbase api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("coinbase api returned non-2xx status: %d, body: %s", resp.StatusCode, string(raw))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse coinbase response: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("coinbase rejected request: %s", envelope.Error.Message)
	}
	return envelope.Data, nil
}
