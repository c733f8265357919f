package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// HeaderName carries the provider signature on every event POST
	HeaderName = "X-Hub-Signature-256"

	// Prefix precedes the hex digest in the header value
	Prefix = "sha256="
)

// Sign returns the header value for the given body: sha256=<hex hmac>
func Sign(rawBody []byte, secret string) string {
	return Prefix + hex.EncodeToString(digest(rawBody, secret))
}

// Parse decodes a header value into the raw digest bytes
func Parse(header string) ([]byte, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("signature header is empty")
	}
	if !strings.HasPrefix(header, Prefix) {
		return nil, fmt.Errorf("signature header must start with %s", Prefix)
	}
	sum, err := hex.DecodeString(strings.TrimPrefix(header, Prefix))
	if err != nil {
		return nil, fmt.Errorf("decoding hex digest: %w", err)
	}
	if len(sum) != sha256.Size {
		return nil, fmt.Errorf("digest must be %d bytes (got %d)", sha256.Size, len(sum))
	}
	return sum, nil
}

/* Verify recomputes the HMAC-SHA256 of the raw body and compares it with the
 * header in constant time. It fails closed: a missing secret, a missing or
 * malformed header all return false.
 * rawBody must be the exact bytes received, never a re-encoded JSON value.
 */
func Verify(rawBody []byte, signatureHeader string, secret string) bool {
	if secret == "" {
		return false
	}
	expected, err := Parse(signatureHeader)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, digest(rawBody, secret))
}

func digest(rawBody []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return mac.Sum(nil)
}
