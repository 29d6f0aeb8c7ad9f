// Package totpx implements the time-based one-time password second factor:
// shared-secret generation and encoding, RFC 6238 code derivation, and the
// otpauth:// provisioning URI handed to authenticator apps.
package totpx

import (
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SecretSize is the raw secret length in bytes (160 bits, the RFC 4226
// recommended minimum).
const SecretSize = 20

// ErrInvalidSecret reports a secret that is not unpadded base32.
var ErrInvalidSecret = errors.New("totpx: invalid secret")

// b32 is the shared-secret alphabet. Authenticator apps expect unpadded
// upper-case RFC 4648 base32.
var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret reads SecretSize bytes from r and returns them encoded as
// an unpadded base32 string. The randomness source is an explicit parameter
// so tests can inject deterministic fixtures; production callers pass
// crypto/rand.Reader. An exhausted or failing source is fatal.
func GenerateSecret(r io.Reader) (string, error) {
	buf := make([]byte, SecretSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("totpx: read entropy: %w", err)
	}
	return b32.EncodeToString(buf), nil
}

// decodeSecret parses an externally supplied secret. Lower-case input is
// accepted since some enrollment UIs display secrets that way.
func decodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrInvalidSecret
	}
	key, err := b32.DecodeString(strings.ToUpper(secret))
	if err != nil {
		return nil, ErrInvalidSecret
	}
	return key, nil
}
