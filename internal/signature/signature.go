// Package signature validates the authenticity of inbound webhook and
// payment-notification payloads.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// VerifyWebhookSignature recomputes the base64 HMAC-SHA256 of the raw request
// body under the shared webhook secret and compares it with the signature
// header value. The body must be the exact bytes received on the wire;
// re-serialized JSON is not guaranteed to reproduce them.
func VerifyWebhookSignature(secret string, body []byte, provided string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(provided))
}

// NotificationDigest computes the hex SHA-512 of the processor master key.
// The processor includes the same digest in every settlement notification as
// proof it holds the shared secret.
func NotificationDigest(masterKey string) (string, error) {
	if masterKey == "" {
		return "", errors.New("master key is not configured")
	}
	sum := sha512.Sum512([]byte(masterKey))
	return hex.EncodeToString(sum[:]), nil
}

// DigestsEqual compares two digests in constant time.
func DigestsEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
