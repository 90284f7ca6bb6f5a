package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegrityMatchesKnownDigest(t *testing.T) {
	// Digest of the concatenation, computed independently.
	sum := sha256.Sum256([]byte("chefscan_u1_17000000000001990000COPsecret"))
	want := hex.EncodeToString(sum[:])

	got := Integrity("chefscan_u1_1700000000000", 1990000, "COP", "secret")
	assert.Equal(t, want, got)
}

func TestVerifyIntegrity(t *testing.T) {
	ref := "chefscan_u1_1700000000000"
	sig := Integrity(ref, 1990000, "COP", "secret")

	assert.True(t, VerifyIntegrity(ref, 1990000, "COP", "secret", sig))
	assert.True(t, VerifyIntegrity(ref, 1990000, "COP", "secret", strings.ToUpper(sig)))
}

func TestVerifyIntegrityRejectsTamperedAmount(t *testing.T) {
	ref := "chefscan_u1_1700000000000"
	sig := Integrity(ref, 1990000, "COP", "secret")

	// Same reference and currency, cheaper amount.
	assert.False(t, VerifyIntegrity(ref, 100, "COP", "secret", sig))
}

func TestVerifyIntegrityRejectsWrongSecret(t *testing.T) {
	ref := "chefscan_u1_1700000000000"
	sig := Integrity(ref, 1990000, "COP", "secret")

	assert.False(t, VerifyIntegrity(ref, 1990000, "COP", "other-secret", sig))
}

func TestEventChecksum(t *testing.T) {
	sum := sha256.Sum256([]byte("tx-1APPROVED19900001700000000events-secret"))
	want := hex.EncodeToString(sum[:])

	got := EventChecksum([]string{"tx-1", "APPROVED", "1990000"}, 1700000000, "events-secret")
	assert.Equal(t, want, got)

	tampered := EventChecksum([]string{"tx-1", "DECLINED", "1990000"}, 1700000000, "events-secret")
	assert.NotEqual(t, want, tampered)
}

func TestEqualIsCaseInsensitive(t *testing.T) {
	assert.True(t, Equal("abc123", "ABC123"))
	assert.False(t, Equal("abc123", "abc124"))
	assert.False(t, Equal("abc123", "abc12"))
}
