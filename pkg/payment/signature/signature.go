// Package signature implements the hash-based integrity schemes used by
// providers without a library-backed signing header. Stripe deliveries are
// verified by stripe-go's webhook.ConstructEvent instead and never pass
// through here.
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

// Integrity computes the checkout integrity signature:
// hex(SHA-256(reference + amountInCents + currency + secret)). Wompi
// requires it inside the widget config and it doubles as the variant-A
// verification digest for payloads that echo amount and currency.
func Integrity(ref string, amountInCents int64, currency, secret string) string {
	var b strings.Builder
	b.WriteString(ref)
	b.WriteString(strconv.FormatInt(amountInCents, 10))
	b.WriteString(currency)
	b.WriteString(secret)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity recomputes the digest and compares in constant time.
func VerifyIntegrity(ref string, amountInCents int64, currency, secret, given string) bool {
	expected := Integrity(ref, amountInCents, currency, secret)
	return Equal(expected, given)
}

// EventChecksum computes the webhook event checksum: the event's declared
// property values concatenated in order, then the event timestamp, then the
// events secret.
func EventChecksum(properties []string, timestamp int64, secret string) string {
	var b strings.Builder
	for _, p := range properties {
		b.WriteString(p)
	}
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString(secret)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Equal compares two hex digests without leaking the mismatch position.
// Provider checksums arrive uppercase or lowercase depending on the API
// version, so the comparison is case-insensitive.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(a)),
		[]byte(strings.ToLower(b)),
	) == 1
}
