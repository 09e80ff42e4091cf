package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_dGVzdC1zaWduaW5nLXNlY3JldA=="

func signWebhook(t *testing.T, secret, msgID, timestamp string, body []byte) string {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(secret[len("whsec_"):])
	require.NoError(t, err)

	mac := hmac.New(sha256.New, raw)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(body []byte) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
}

func TestWebhookRejectsMissingHeaders(t *testing.T) {
	h := NewWebhookHandler(nil, testWebhookSecret)

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, webhookRequest([]byte(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := NewWebhookHandler(nil, testWebhookSecret)
	body := []byte(`{"type":"user.created"}`)

	req := webhookRequest(body)
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString([]byte("not-the-signature")))

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsStaleTimestamp(t *testing.T) {
	h := NewWebhookHandler(nil, testWebhookSecret)
	body := []byte(`{"type":"user.created"}`)

	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	req := webhookRequest(body)
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", stale)
	req.Header.Set("svix-signature", signWebhook(t, testWebhookSecret, "msg_1", stale, body))

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAcknowledgesUnsubscribedEvents(t *testing.T) {
	h := NewWebhookHandler(nil, testWebhookSecret)
	body := []byte(`{"type":"session.created","object":"event","data":{}}`)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := webhookRequest(body)
	req.Header.Set("svix-id", "msg_2")
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", signWebhook(t, testWebhookSecret, "msg_2", ts, body))

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookAcceptsSecondSignatureEntry(t *testing.T) {
	h := NewWebhookHandler(nil, testWebhookSecret)
	body := []byte(`{"type":"session.created","object":"event","data":{}}`)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	good := signWebhook(t, testWebhookSecret, "msg_3", ts, body)
	req := webhookRequest(body)
	req.Header.Set("svix-id", "msg_3")
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", "v1,aW52YWxpZA== "+good)

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookWithoutConfiguredSecret(t *testing.T) {
	h := NewWebhookHandler(nil, "")

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, webhookRequest([]byte(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
