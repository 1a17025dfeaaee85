// Package token mints opaque, URL-safe bearer tokens for verification links,
// password resets and sessions.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// ByteLength is the amount of randomness per token (256 bits).
const ByteLength = 32

// Token is a freshly issued opaque token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer creates tokens. The zero value is not usable; call NewIssuer.
type Issuer struct {
	now func() time.Time
}

// NewIssuer returns an Issuer using the wall clock.
func NewIssuer() *Issuer {
	return &Issuer{now: time.Now}
}

// NewIssuerWithClock returns an Issuer using now as its clock.
func NewIssuerWithClock(now func() time.Time) *Issuer {
	return &Issuer{now: now}
}

// Issue returns a new token that expires ttl from now.
func (i *Issuer) Issue(ttl time.Duration) (Token, error) {
	value, err := Generate()
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, ExpiresAt: i.now().Add(ttl).UTC()}, nil
}

// Now exposes the issuer's clock so callers compare expiry on the same time base.
func (i *Issuer) Now() time.Time {
	return i.now().UTC()
}

// Generate returns a random URL-safe string without padding.
func Generate() (string, error) {
	b := make([]byte, ByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
