package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http/httptest"
	"testing"
)

func signPayload(secretB64 string, id, timestamp string, body []byte) string {
	key, _ := base64.StdEncoding.DecodeString(secretB64)
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", id, timestamp, body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyClerkSignature(t *testing.T) {
	secretB64 := base64.StdEncoding.EncodeToString([]byte("whsec-test-key"))
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_"+secretB64)

	body := []byte(`{"type":"user.created","data":{"id":"user_123"}}`)

	t.Run("valid signature", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/webhooks/clerk", bytes.NewReader(body))
		r.Header.Set("svix-id", "msg_1")
		r.Header.Set("svix-timestamp", "1700000000")
		r.Header.Set("svix-signature", signPayload(secretB64, "msg_1", "1700000000", body))

		if !verifyClerkSignature(r, body) {
			t.Error("valid signature rejected")
		}
	})

	t.Run("multiple signatures in header", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/webhooks/clerk", bytes.NewReader(body))
		r.Header.Set("svix-id", "msg_1")
		r.Header.Set("svix-timestamp", "1700000000")
		good := signPayload(secretB64, "msg_1", "1700000000", body)
		r.Header.Set("svix-signature", "v1,bm90LXRoZS1zaWc= "+good)

		if !verifyClerkSignature(r, body) {
			t.Error("valid signature among several rejected")
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/webhooks/clerk", bytes.NewReader(body))
		r.Header.Set("svix-id", "msg_1")
		r.Header.Set("svix-timestamp", "1700000000")
		r.Header.Set("svix-signature", signPayload(secretB64, "msg_1", "1700000000", body))

		tampered := []byte(`{"type":"user.deleted","data":{"id":"user_123"}}`)
		if verifyClerkSignature(r, tampered) {
			t.Error("tampered body accepted")
		}
	})

	t.Run("missing headers", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/webhooks/clerk", bytes.NewReader(body))
		if verifyClerkSignature(r, body) {
			t.Error("request without svix headers accepted")
		}
	})

	t.Run("no secret configured skips verification", func(t *testing.T) {
		t.Setenv("CLERK_WEBHOOK_SECRET", "")
		r := httptest.NewRequest("POST", "/webhooks/clerk", bytes.NewReader(body))
		if !verifyClerkSignature(r, body) {
			t.Error("verification not skipped without a configured secret")
		}
	})
}
