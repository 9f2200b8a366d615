package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TimeLayout is the single timestamp format used for hashing, storage and
// display. UTC, microsecond precision, fixed width.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t in TimeLayout after converting to UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout string back into a UTC time.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Normalize truncates t to the precision TimeLayout can represent, so the
// in-memory value equals the value re-parsed from storage.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Digest computes SHA-256 with domain separation and returns lowercase hex.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func Digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
