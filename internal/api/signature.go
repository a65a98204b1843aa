package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the upstream's HMAC-SHA256 of the raw body
const SignatureHeader = "X-Webhook-Signature"

// VerifySignature checks the hex-encoded HMAC-SHA256 of the raw body in
// constant time. A "sha256=" prefix on the header value is accepted.
func VerifySignature(secret string, body []byte, header string) bool {
	header = strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(header)))
}
