package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SignatureHeader carries the body signature on every webhook delivery.
const SignatureHeader = "X-Line-Signature"

// ErrInvalidSignature is returned when a delivery fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Sign returns base64(HMAC-SHA256(secret, body)).
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret. An empty signature or
// secret never verifies.
func Verify(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
