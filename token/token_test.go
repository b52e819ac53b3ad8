package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaher/pcaptcha/token"
)

var secret = []byte("test-master-secret")

func TestIssueAndVerify(t *testing.T) {
	issuer, err := token.NewIssuer(secret)
	require.NoError(t, err)
	verifier, err := token.NewVerifier(secret)
	require.NoError(t, err)

	fp := token.Fingerprint("203.0.113.9", "Mozilla/5.0")
	signed, err := issuer.Issue("chal-1", "sess-1", fp)
	require.NoError(t, err)

	// Three base64url segments on the wire.
	assert.Len(t, strings.Split(signed, "."), 3)

	claims, err := verifier.Verify(signed, fp)
	require.NoError(t, err)
	assert.Equal(t, "chal-1", claims.ChallengeID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, fp, claims.Fingerprint)

	// Idempotent: verifying twice yields the same result.
	again, err := verifier.Verify(signed, fp)
	require.NoError(t, err)
	assert.Equal(t, claims.ChallengeID, again.ChallengeID)
}

func TestVerifyMissing(t *testing.T) {
	verifier, err := token.NewVerifier(secret)
	require.NoError(t, err)

	_, err = verifier.Verify("", "anything")
	assert.ErrorIs(t, err, token.ErrTokenMissing)
}

func TestVerifyMalformed(t *testing.T) {
	verifier, err := token.NewVerifier(secret)
	require.NoError(t, err)

	_, err = verifier.Verify("not-a-jwt", "fp")
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestVerifyWrongKey(t *testing.T) {
	issuer, err := token.NewIssuer(secret)
	require.NoError(t, err)
	verifier, err := token.NewVerifier([]byte("a different secret"))
	require.NoError(t, err)

	signed, err := issuer.Issue("chal-1", "sess-1", "fp")
	require.NoError(t, err)

	_, err = verifier.Verify(signed, "fp")
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestVerifyTamperedPayload(t *testing.T) {
	issuer, err := token.NewIssuer(secret)
	require.NoError(t, err)
	verifier, err := token.NewVerifier(secret)
	require.NoError(t, err)

	signed, err := issuer.Issue("chal-1", "sess-1", "fp")
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	_, err = verifier.Verify(strings.Join(parts, "."), "fp")
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestVerifyIdentityMismatch(t *testing.T) {
	issuer, err := token.NewIssuer(secret)
	require.NoError(t, err)
	verifier, err := token.NewVerifier(secret)
	require.NoError(t, err)

	fp := token.Fingerprint("203.0.113.9", "Mozilla/5.0")
	signed, err := issuer.Issue("chal-1", "sess-1", fp)
	require.NoError(t, err)

	otherFP := token.Fingerprint("203.0.113.9", "curl/8.0")
	claims, err := verifier.Verify(signed, otherFP)
	assert.ErrorIs(t, err, token.ErrIdentityMismatch)

	// Signature and expiry still passed: the claims come back so the
	// caller can decide policy.
	require.NotNil(t, claims)
	assert.Equal(t, "chal-1", claims.ChallengeID)
}

func TestVerifyExpiry(t *testing.T) {
	issuedAt := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	issuer, err := token.NewIssuer(secret, token.WithIssuerNow(func() time.Time { return issuedAt }))
	require.NoError(t, err)

	fp := token.Fingerprint("203.0.113.9", "Mozilla/5.0")
	signed, err := issuer.Issue("chal-1", "sess-1", fp)
	require.NoError(t, err)

	// Valid right up to the TTL.
	now := issuedAt.Add(token.TTL - time.Second)
	verifier, err := token.NewVerifier(secret, token.WithVerifierNow(func() time.Time { return now }))
	require.NoError(t, err)
	_, err = verifier.Verify(signed, fp)
	require.NoError(t, err)

	// Strictly after exp: expired.
	now = issuedAt.Add(token.TTL + time.Second)
	_, err = verifier.Verify(signed, fp)
	assert.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestFingerprintSensitivity(t *testing.T) {
	base := token.Fingerprint("203.0.113.9", "Mozilla/5.0")
	assert.Equal(t, base, token.Fingerprint("203.0.113.9", "Mozilla/5.0"))
	assert.NotEqual(t, base, token.Fingerprint("203.0.113.10", "Mozilla/5.0"))
	assert.NotEqual(t, base, token.Fingerprint("203.0.113.9", "curl/8.0"))
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := token.NewIssuer(nil)
	assert.Error(t, err)
	_, err = token.NewVerifier(nil)
	assert.Error(t, err)
}
