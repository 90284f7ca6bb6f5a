// Package reference encodes the opaque transaction reference that binds a
// provider-side transaction back to an internal user without a lookup
// table: <prefix>_<userID>_<epochMillis>. The timestamp disambiguates
// concurrent checkouts by the same user; the only durable trace of a
// reference is inside the provider's transaction record and our logs.
package reference

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chefscan_backend/pkg/payment"
)

const delimiter = "_"

// Prefixes per provider. None may contain the delimiter. User ids come
// from the auth system as UUIDs, which never contain an underscore; Encode
// still rejects one defensively since a delimiter inside the id would make
// the reference undecodable.
var prefixes = map[string]string{
	"wompi":       "chefscan",
	"mercadopago": "chefscanmp",
	"stripe":      "chefscanst",
}

func Prefix(provider string) string {
	if p, ok := prefixes[provider]; ok {
		return p
	}
	return "chefscan"
}

func Encode(userID, provider string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", payment.ErrMalformedReference)
	}
	if strings.Contains(userID, delimiter) {
		return "", fmt.Errorf("%w: user id contains delimiter", payment.ErrMalformedReference)
	}
	return strings.Join([]string{
		Prefix(provider),
		userID,
		strconv.FormatInt(time.Now().UnixMilli(), 10),
	}, delimiter), nil
}

// Decode returns the user id embedded in ref. The provider's prefix must
// match: a reference minted for one gateway is never accepted on another
// gateway's webhook endpoint.
func Decode(ref, provider string) (string, error) {
	parts := strings.Split(ref, delimiter)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 segments, got %d", payment.ErrMalformedReference, len(parts))
	}
	if parts[0] != Prefix(provider) {
		return "", fmt.Errorf("%w: unexpected prefix %q", payment.ErrMalformedReference, parts[0])
	}
	if parts[1] == "" {
		return "", fmt.Errorf("%w: empty user segment", payment.ErrMalformedReference)
	}
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return "", fmt.Errorf("%w: bad timestamp segment", payment.ErrMalformedReference)
	}
	return parts[1], nil
}
