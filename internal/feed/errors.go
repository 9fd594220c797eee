package feed

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures. All of them are transient: Fetch
// absorbs them into a stale or fallback Outcome.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindNetwork   ErrorKind = "network"
	KindMalformed ErrorKind = "malformed"
)

// FetchError describes why a fetch did not produce a fresh value.
type FetchError struct {
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "feed " + string(e.Kind)
	}
	return fmt.Sprintf("feed %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the kind of a FetchError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func classify(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	return &FetchError{Kind: KindNetwork, Err: err}
}
