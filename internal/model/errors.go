package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing document, asset, or index entry.
	ErrNotFound = errors.New("not found")
	// ErrNamingExhausted is returned when repeated hex id generation keeps
	// colliding with existing filenames. Astronomically unlikely at the
	// default length, but handled rather than assumed away.
	ErrNamingExhausted = errors.New("hex id naming exhausted")
)

// Extraction failure kinds. Each per-file failure carries exactly one.
const (
	ExtractionMalformed = "malformed"
	ExtractionEncrypted = "encrypted"
	ExtractionPage      = "page"
	ExtractionIO        = "io"
)

// ExtractionError is a typed per-file extraction failure. It never crashes
// the caller; the ingestion pipeline records it and continues the batch.
type ExtractionError struct {
	Kind string
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ProviderError wraps a failure from an external API provider with
// enough classification for callers to decide whether to retry.
type ProviderError struct {
	Code       string
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is a ProviderError marked transient.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// ConsistencyError reports a mismatch between the metadata store's
// embeddings_count and the vector index contents. It is surfaced for
// administrative action, never silently patched.
type ConsistencyError struct {
	DocID    int64
	Status   string
	Expected int
	Actual   int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("doc %d: embedding status %q records %d chunks but index holds %d",
		e.DocID, e.Status, e.Expected, e.Actual)
}
