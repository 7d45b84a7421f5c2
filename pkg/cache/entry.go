package cache

import (
	"time"
)

// Entry is one cached upstream response.
type Entry struct {
	// Data is the raw response body
	Data []byte `json:"data"`

	// StatusCode is the upstream status; 404 marks a negative entry
	StatusCode int `json:"status_code"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`

	// TTL is the lifetime the entry was written with
	TTL time.Duration `json:"ttl"`
}

// Expired reports whether the entry is no longer usable at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.StoredAt) >= e.TTL
}

// Remaining returns the time left before expiry at now.
// Returns 0 if already expired.
func (e *Entry) Remaining(now time.Time) time.Duration {
	left := e.TTL - now.Sub(e.StoredAt)
	if left < 0 {
		return 0
	}
	return left
}

// clone copies the entry so callers never share the stored value.
func (e *Entry) clone() *Entry {
	c := *e
	c.Data = append([]byte(nil), e.Data...)
	return &c
}
