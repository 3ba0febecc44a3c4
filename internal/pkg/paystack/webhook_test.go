package paystack

import "testing"

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"charge.success","data":{"reference":"inkw_abc","status":"success","amount":10000,"currency":"NGN","id":42}}`)
	secret := "sk_test_secret"

	sig := GenerateSignature(payload, secret)
	if sig == "" {
		t.Fatal("expected signature, got empty string")
	}

	if !VerifySignature(payload, sig, secret) {
		t.Error("valid signature rejected")
	}
	if VerifySignature(payload, sig, "other-secret") {
		t.Error("signature accepted with wrong secret")
	}
	if VerifySignature([]byte(`{"tampered":true}`), sig, secret) {
		t.Error("signature accepted for tampered payload")
	}
	if VerifySignature(payload, "", secret) {
		t.Error("empty signature accepted")
	}
	if VerifySignature(payload, "zzzz-not-hex", secret) {
		t.Error("non-hex signature accepted")
	}
}

func TestParseWebhook(t *testing.T) {
	payload := []byte(`{"event":"charge.success","data":{"reference":"inkw_abc","status":"success","amount":10000,"currency":"NGN","id":42,"metadata":{"userId":"u1"}}}`)

	event, err := ParseWebhook(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Event != "charge.success" {
		t.Errorf("unexpected event: %s", event.Event)
	}
	if event.Data.Reference != "inkw_abc" {
		t.Errorf("unexpected reference: %s", event.Data.Reference)
	}
	if event.Data.Amount != 10000 {
		t.Errorf("unexpected amount: %d", event.Data.Amount)
	}
}

func TestParseWebhookMissingReference(t *testing.T) {
	if _, err := ParseWebhook([]byte(`{"event":"charge.success","data":{}}`)); err == nil {
		t.Error("expected error for missing reference")
	}
	if _, err := ParseWebhook([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}
