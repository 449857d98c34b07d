package utils // package utils provides helpers for token creation and password verification

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityToken is a signed stateless bearer credential.  Token holds
// the serialized JWT; IssuedAt is the iat claim the moderation engine
// measures its age window against.  Nothing about the token is stored
// server-side.
type IdentityToken struct {
	Token    string
	IssuedAt time.Time
}

// NewIdentityToken builds and signs an HS256 JWT carrying a scope set,
// an issuance timestamp and an opaque per-session subject.  The subject
// is stable for the lifetime of the session but unlinkable to a real
// identity; it exists only so the pipeline can correlate an anonymous
// poster's history.
func NewIdentityToken(secret string, scopes []string, subject string, now time.Time) (IdentityToken, error) {
	now = now.UTC()
	claims := jwt.MapClaims{
		"scopes": scopes,
		"iat":    now.Unix(),
	}
	if subject != "" {
		claims["sub"] = subject
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return IdentityToken{}, err
	}
	return IdentityToken{Token: signed, IssuedAt: now}, nil
}

// NewSubject returns a fresh opaque session subject: 16 bytes of
// cryptographically secure randomness, hex encoded.
func NewSubject() (string, error) {
	return randomHex(16)
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
