// Package signature authenticates webhook bodies signed by the messaging
// provider. The provider sends "sha256=<hex>" where <hex> is the HMAC-SHA256
// of the raw request body keyed by the shared webhook secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Prefix tags the hex digest in the signature header.
const Prefix = "sha256="

// Sign returns the signature header value for body under secret.
func Sign(secret, body []byte) string {
	return Prefix + hex.EncodeToString(digest(secret, body))
}

// Verify reports whether received is a valid signature of body under secret.
// It returns false for an empty secret, body, or signature, a missing prefix,
// or a digest that is not valid hex. Digests are compared in constant time.
func Verify(secret, body []byte, received string) bool {
	if len(secret) == 0 || len(body) == 0 || received == "" {
		return false
	}
	received = strings.TrimSpace(received)
	if len(received) <= len(Prefix) || !strings.EqualFold(received[:len(Prefix)], Prefix) {
		return false
	}

	got, err := hex.DecodeString(received[len(Prefix):])
	if err != nil || len(got) != sha256.Size {
		return false
	}

	return hmac.Equal(got, digest(secret, body))
}

func digest(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
