package credentials

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	totpPeriod = 30 * time.Second
	totpDigits = 6
)

// TOTPCode computes an RFC 6238 time-based one-time password from a
// base32 seed, using the 30 second period and 6 digit output that the
// GitHub two-factor prompt expects.
func TOTPCode(seed string, t time.Time) (string, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(seed, " ", ""))
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(normalized, "="))
	if err != nil {
		return "", fmt.Errorf("decoding TOTP seed: %w", err)
	}

	counter := uint64(t.Unix() / int64(totpPeriod.Seconds()))
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, code%mod), nil
}
