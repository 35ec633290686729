package server

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

const (
	SignatureHeader = "X-Hub-Signature"
	SignaturePrefix = "sha1="
)

// VerifySignature verifies the HMAC-SHA1 signature GitHub sends in X-Hub-Signature.
// An empty secret never verifies.
func VerifySignature(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	// Signature format: "sha1=<hex_digest>"
	if !strings.HasPrefix(signature, SignaturePrefix) {
		return false
	}

	receivedMAC := strings.TrimPrefix(signature, SignaturePrefix)
	if receivedMAC == "" {
		return false
	}

	expectedMAC := strings.TrimPrefix(SignPayload(payload, secret), SignaturePrefix)

	// Constant-time comparison to prevent timing attacks
	return hmac.Equal([]byte(expectedMAC), []byte(receivedMAC))
}

// SignPayload returns the "sha1=<hex>" signature of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
