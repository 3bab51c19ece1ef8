// Package payments holds the provider integration: transaction initiation,
// the signed webhook, and the settlement pipeline with its ledger.
package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// ComputeSignature returns hex(HMAC-SHA512(secret, body)), the scheme the
// provider uses to sign webhook deliveries.
func ComputeSignature(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature header against the raw body
// using a constant-time comparison.
func VerifySignature(secret, body []byte, header string) bool {
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(header))
}
