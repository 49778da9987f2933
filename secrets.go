package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"github.com/goliatone/go-errors"
)

const opaqueTokenBytes = 32

// GenerateOpaqueToken returns a high entropy, URL safe random value used
// for refresh tokens and confirmation secrets.
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate random token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret returns the hex encoded SHA-256 digest of a secret. Stores
// keep the digest, never the raw value.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SecretMatchesHash compares a raw secret against a stored digest in
// constant time.
func SecretMatchesHash(secret, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashSecret(secret)), []byte(hash)) == 1
}

// EncodeLinkToken makes a secret safe to embed in a query parameter. The
// decode side restores the original byte sequence exactly.
func EncodeLinkToken(secret string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(secret))
}

// DecodeLinkToken reverses EncodeLinkToken.
func DecodeLinkToken(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryBadInput, "malformed link token")
	}
	return string(raw), nil
}
