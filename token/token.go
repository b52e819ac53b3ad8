// Package token mints and verifies the short-lived proof tokens handed
// out when a challenge is solved. Tokens are stateless HS256 JWTs bound
// to the requester's identity fingerprint; nothing is persisted.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// TTL is the proof token lifetime.
const TTL = 5 * time.Minute

const issuerName = "pcaptcha"

// signingKeyInfo namespaces the derived signing key so the master
// secret can be reused for other purposes without key overlap.
const signingKeyInfo = "pcaptcha:token-sign:v1"

var (
	// ErrTokenMissing indicates no token was presented.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenExpired indicates the token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates the token is malformed or its signature
	// does not verify.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrIdentityMismatch indicates the signature and expiry check out
	// but the presented fingerprint differs from the one embedded at
	// issuance. Non-fatal: the caller decides policy, and the parsed
	// claims are still returned alongside this error.
	ErrIdentityMismatch = errors.New("identity mismatch")
)

// Fingerprint derives the requester identity hash from the network
// address and the client-declared agent string.
func Fingerprint(ip, agent string) string {
	sum := sha256.Sum256([]byte(ip + "\n" + agent))
	return hex.EncodeToString(sum[:])
}

// Claims are the signed token claims.
type Claims struct {
	jwt.RegisteredClaims
	ChallengeID string `json:"challenge_id"`
	SessionID   string `json:"session_id"`
	Fingerprint string `json:"fingerprint"`
}

// deriveSigningKey expands the master secret into a 32-byte HMAC key
// via HKDF-SHA256.
func deriveSigningKey(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("master secret must not be empty")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(signingKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving signing key: %w", err)
	}
	return key, nil
}

// Issuer mints proof tokens.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithIssuerNow overrides the issuer clock, for tests.
func WithIssuerNow(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates a token issuer from the master secret.
func NewIssuer(secret []byte, opts ...IssuerOption) (*Issuer, error) {
	key, err := deriveSigningKey(secret)
	if err != nil {
		return nil, err
	}
	i := &Issuer{key: key, ttl: TTL, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue mints a signed token binding the solved challenge and session
// to the requester's fingerprint, expiring TTL after issuance.
func (i *Issuer) Issue(challengeID, sessionID, fingerprint string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		ChallengeID: challengeID,
		SessionID:   sessionID,
		Fingerprint: fingerprint,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verifier validates presented proof tokens.
type Verifier struct {
	key []byte
	now func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierNow overrides the verifier clock, for tests.
func WithVerifierNow(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a token verifier from the master secret.
func NewVerifier(secret []byte, opts ...VerifierOption) (*Verifier, error) {
	key, err := deriveSigningKey(secret)
	if err != nil {
		return nil, err
	}
	v := &Verifier{key: key, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks a presented token's signature and expiry, then compares
// the embedded fingerprint against the one observed at verification
// time. On ErrIdentityMismatch the parsed claims are returned so the
// caller can apply its own policy; all other failures return nil claims.
// Verification is side-effect free and idempotent.
func (v *Verifier) Verify(tokenString, fingerprint string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(fingerprint)) != 1 {
		return &claims, ErrIdentityMismatch
	}
	return &claims, nil
}
