// Package crypto signs outbound webhook payloads and hashes market resolution
// rules so two venues' rule texts can be compared cheaply.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Webhook signature headers.
const (
	HeaderTimestamp = "X-Marketsync-Timestamp"
	HeaderSignature = "X-Marketsync-Signature"
)

// WebhookSigner holds the shared secret for HMAC-signed webhook requests.
type WebhookSigner struct {
	Secret string
}

// Headers returns the signature headers for body using the current time.
// The signature is HMAC-SHA256(secret, timestamp + "." + body), hex encoded
// and prefixed with "sha256=".
//
// Returned header keys:
//   - X-Marketsync-Timestamp
//   - X-Marketsync-Signature
func (w *WebhookSigner) Headers(body []byte) map[string]string {
	return w.HeadersAt(body, time.Now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (w *WebhookSigner) HeadersAt(body []byte, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)
	return map[string]string{
		HeaderTimestamp: ts,
		HeaderSignature: "sha256=" + hmacSHA256Hex([]byte(w.Secret), ts+"."+string(body)),
	}
}

// Verify checks a received signature header against body and timestamp.
func (w *WebhookSigner) Verify(body []byte, timestamp, signature string) bool {
	want := "sha256=" + hmacSHA256Hex([]byte(w.Secret), timestamp+"."+string(body))
	return hmac.Equal([]byte(want), []byte(signature))
}

// hmacSHA256Hex computes HMAC-SHA256 of message using key and returns the
// result hex encoded.
func hmacSHA256Hex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (w *WebhookSigner) String() string {
	s := w.Secret
	if len(s) <= 4 {
		s = "****"
	} else {
		s = s[:4] + "****"
	}
	return fmt.Sprintf("WebhookSigner{secret=%s}", s)
}
