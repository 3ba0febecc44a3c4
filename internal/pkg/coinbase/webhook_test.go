package coinbase

import "testing"

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":{"type":"charge:confirmed","data":{"code":"ABCD1234"}}}`)
	secret := "cc-webhook-secret"

	sig := GenerateSignature(payload, secret)
	if !VerifySignature(payload, sig, secret) {
		t.Error("valid signature rejected")
	}
	if VerifySignature(payload, sig, "other-secret") {
		t.Error("signature accepted with wrong secret")
	}
	if VerifySignature([]byte(`{}`), sig, secret) {
		t.Error("signature accepted for tampered payload")
	}
}

func TestParseWebhook(t *testing.T) {
	payload := []byte(`{"event":{"type":"charge:confirmed","data":{"code":"ABCD1234","hosted_url":"https://commerce.coinbase.com/charges/ABCD1234","timeline":[{"status":"NEW"},{"status":"COMPLETED"}],"pricing":{"local":{"amount":"25.00","currency":"USD"}},"metadata":{"reference":"inkw_abc"}}}}`)

	event, err := ParseWebhook(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Event.Type != "charge:confirmed" {
		t.Errorf("unexpected type: %s", event.Event.Type)
	}
	if event.Event.Data.Code != "ABCD1234" {
		t.Errorf("unexpected code: %s", event.Event.Data.Code)
	}
	if got := event.Event.Data.LatestStatus(); got != "COMPLETED" {
		t.Errorf("unexpected timeline status: %s", got)
	}
	if event.Event.Data.Metadata["reference"] != "inkw_abc" {
		t.Errorf("unexpected reference: %s", event.Event.Data.Metadata["reference"])
	}

	if _, err := ParseWebhook([]byte(`{}`)); err == nil {
		t.Error("expected error for missing event type")
	}
}
