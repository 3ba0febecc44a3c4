package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInitialize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("unexpected authorization header: %s", got)
		}

		var req InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Amount != 10000 {
			t.Errorf("expected amount 10000 subunits, got %d", req.Amount)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"` + req.Reference + `"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, SecretKey: "sk_test_123"})

	resp, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "user@example.com",
		Amount:    ToSubunits(100),
		Currency:  "NGN",
		Reference: "inkw_test1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AuthorizationURL != "https://checkout.paystack.com/abc" {
		t.Errorf("unexpected checkout url: %s", resp.AuthorizationURL)
	}
	if resp.Reference != "inkw_test1" {
		t.Errorf("unexpected reference: %s", resp.Reference)
	}
}

func TestInitializeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, SecretKey: "sk_bad"})

	_, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "user@example.com",
		Amount:    10000,
		Reference: "inkw_test2",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "rejected request") {
		t.Errorf("expected rejection error, got: %v", err)
	}
}

func TestInitializeValidation(t *testing.T) {
	client := NewClient(Config{SecretKey: "sk_test"})

	if _, err := client.Initialize(context.Background(), InitializeRequest{Email: "a@b.c", Reference: "r"}); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := client.Initialize(context.Background(), InitializeRequest{Amount: 100, Reference: "r"}); err == nil {
		t.Error("expected error for empty email")
	}
}

func TestVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/inkw_test3" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","reference":"inkw_test3","amount":10000,"currency":"NGN","id":42}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, SecretKey: "sk_test_123"})

	resp, err := client.Verify(context.Background(), "inkw_test3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("unexpected status: %s", resp.Status)
	}
	if FromSubunits(resp.Amount) != 100 {
		t.Errorf("expected 100 major units, got %f", FromSubunits(resp.Amount))
	}
}

func TestSubunitsRoundTrip(t *testing.T) {
	cases := []float64{1, 100, 0.5, 1234.56}
	for _, amount := range cases {
		if got := FromSubunits(ToSubunits(amount)); got != amount {
			t.Errorf("round trip for %f: got %f", amount, got)
		}
	}
}
