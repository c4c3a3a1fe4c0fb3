// internal/webhook/signature.go
package webhook

import (
	"github.com/google/go-github/v62/github"
)

// VerifySignature reports whether signature matches the HMAC-SHA256 digest
// of body under secret. The signature carries an algorithm prefix
// ("sha256=<hex>"); comparison is constant-time.
//
// An empty secret means verification is not configured and every payload
// passes. The caller must log that it is running unsecured.
func VerifySignature(body []byte, signature string, secret []byte) bool {
	if len(secret) == 0 {
		return true
	}
	if signature == "" {
		return false
	}
	return github.ValidateSignature(signature, body, secret) == nil
}
