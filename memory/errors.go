package memory

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a store failure for retry policy.
type Kind int

const (
	// KindTransient covers timeouts, rate limits, and connectivity blips.
	// Operations failing transiently are safe to retry with backoff.
	KindTransient Kind = iota

	// KindPermanent covers failures that will not succeed on retry, such as
	// rejected payloads.
	KindPermanent
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// StoreError wraps a store failure with its retry classification.
type StoreError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable store failure.
func Transient(op string, err error) error {
	return &StoreError{Kind: KindTransient, Op: op, Err: err}
}

// Permanent wraps err as a non-retryable store failure.
func Permanent(op string, err error) error {
	return &StoreError{Kind: KindPermanent, Op: op, Err: err}
}

// IsTransient reports whether err should be retried. Deadline expiry counts
// as transient; an unclassified error does not.
func IsTransient(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind == KindTransient
	}
	return errors.Is(err, context.DeadlineExceeded)
}
