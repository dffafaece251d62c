package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the payload authentication code.
const SignatureHeader = "X-Signature-256"

// Sign computes the authentication code for a payload: a hex-encoded
// HMAC-SHA256 digest of the exact body bytes, prefixed for the header.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
