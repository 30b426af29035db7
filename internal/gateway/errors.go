package gateway

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the selected backend lacks a URL, table or path.
var ErrNotConfigured = errors.New("gateway not configured")

// TransportError is a network failure or a non-2xx response.
type TransportError struct {
	Op         string // "load" | "persist"
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: http %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a response or file body that is not valid JSON.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RemoteStoreError is a failure reported by the backing store.
// Its message is the store's own message, unmodified.
type RemoteStoreError struct {
	Op  string
	Err error
}

func (e *RemoteStoreError) Error() string { return e.Err.Error() }

func (e *RemoteStoreError) Unwrap() error { return e.Err }
