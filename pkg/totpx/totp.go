package totpx

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// Period is the counter step. Fixed at 30s for interoperability with
	// standard authenticator apps.
	Period = 30 * time.Second

	// Digits is the code length. Fixed at 6 for the same reason.
	Digits = 6

	// DefaultWindow tolerates one step of clock drift on either side.
	DefaultWindow = 1
)

// GenerateCode derives the 6-digit code for the step containing t.
//
// The derivation is bit-exact RFC 4226/6238 with SHA-1: the secret keys an
// HMAC over the big-endian step counter, dynamic truncation extracts a
// 31-bit integer, and the code is that integer mod 10^6 zero-padded.
func GenerateCode(secret string, t time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotp(key, uint64(t.Unix())/uint64(Period/time.Second)), nil
}

// VerifyCode reports whether candidate matches the code for any step in
// [current-window, current+window]. A structurally malformed candidate
// (wrong length, non-digits) is a normal failed verification, not an error;
// only a malformed secret is. Comparisons are constant-time.
func VerifyCode(secret, candidate string, t time.Time, window int) (bool, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return false, err
	}
	if !wellFormedCode(candidate) {
		return false, nil
	}
	if window < 0 {
		window = 0
	}

	counter := int64(t.Unix()) / int64(Period/time.Second)
	ok := false
	for skew := -int64(window); skew <= int64(window); skew++ {
		c := counter + skew
		if c < 0 {
			continue
		}
		code := hotp(key, uint64(c))
		if subtle.ConstantTimeCompare([]byte(code), []byte(candidate)) == 1 {
			ok = true
		}
	}
	return ok, nil
}

// hotp computes the RFC 4226 value for a single counter.
func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation: the low nibble of the last byte selects a 4-byte
	// window; the top bit is masked to stay positive.
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", Digits, code%1_000_000)
}

func wellFormedCode(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
