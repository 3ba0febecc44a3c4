package flutterwave

import "testing"

func TestVerifySignature(t *testing.T) {
	secret := "flw-shared-secret"

	if !VerifySignature(secret, secret) {
		t.Error("matching hash rejected")
	}
	if VerifySignature("wrong", secret) {
		t.Error("mismatched hash accepted")
	}
	if VerifySignature("", secret) {
		t.Error("empty header accepted")
	}
	if VerifySignature(secret, "") {
		t.Error("accepted with no configured secret")
	}
}

func TestParseWebhook(t *testing.T) {
	payload := []byte(`{"event":"charge.completed","data":{"id":1234,"tx_ref":"inkw_xyz","flw_ref":"FLW-REF-1","status":"successful","amount":50,"currency":"USD"}}`)

	event, err := ParseWebhook(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Data.TxRef != "inkw_xyz" {
		t.Errorf("unexpected tx_ref: %s", event.Data.TxRef)
	}
	if event.Data.Status != "successful" {
		t.Errorf("unexpected status: %s", event.Data.Status)
	}

	if _, err := ParseWebhook([]byte(`{"event":"charge.completed","data":{}}`)); err == nil {
		t.Error("expected error for missing tx_ref")
	}
}
