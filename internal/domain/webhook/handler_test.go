package webhook

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell-api/internal/pkg/paystack"
	"github.com/inkwell/inkwell-api/internal/pkg/provider"
)

// End-to-end over the HTTP surface with the real Paystack signature scheme:
// the HMAC is computed over the exact bytes on the wire.
func TestHandleVerifiesRawBodySignature(t *testing.T) {
	const secret = "sk_test_webhook"

	repo := newFakeRepo()
	led := &fakeLedger{}
	registry := provider.NewRegistry(provider.NameNowPayments,
		provider.NewPaystackAdapter(paystack.Config{SecretKey: secret}),
	)
	handler := NewHandler(NewService(repo, registry, led))

	r := chi.NewRouter()
	r.Post("/webhooks/{provider}", handler.Handle)

	body := []byte(`{"event":"charge.success","data":{"reference":"inkw_abc","status":"success","amount":10000,"currency":"NGN","id":42}}`)

	t.Run("valid signature finalizes and acks", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
		req.Header.Set(paystack.SignatureHeader, paystack.GenerateSignature(body, secret))
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(led.finalized) != 1 || led.finalized[0] != "inkw_abc" {
			t.Errorf("expected finalize for inkw_abc, got %v", led.finalized)
		}
	})

	t.Run("forged signature is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
		req.Header.Set(paystack.SignatureHeader, paystack.GenerateSignature(body, "wrong-secret"))
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if len(led.finalized) != 1 {
			t.Error("forged webhook must not finalize")
		}
		if len(repo.securityEvents) != 1 {
			t.Errorf("expected security event, got %d", len(repo.securityEvents))
		}
	})

	t.Run("unknown provider returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
