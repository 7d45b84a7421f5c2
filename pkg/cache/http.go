package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// ResponseToEntry converts an HTTP response to an Entry.
// The response body is restored after reading.
func ResponseToEntry(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Entry{
		Data:       body,
		StatusCode: resp.StatusCode,
	}, nil
}

// NotFoundEntry is the negative entry cached for a known-absent resource.
func NotFoundEntry() *Entry {
	return &Entry{StatusCode: http.StatusNotFound}
}

// IsNotFound reports whether the entry records a known-absent resource.
func (e *Entry) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
