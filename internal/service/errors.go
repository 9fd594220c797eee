package service

import (
	"errors"

	"eodd/internal/lifecycle"
)

var (
	// ErrEmptyUsername is returned by Login for blank names.
	ErrEmptyUsername = errors.New("username is required")
	// ErrClosed is returned once the service has been closed.
	ErrClosed = errors.New("service closed")
	// ErrNilObserver is returned by Bind for a nil observer.
	ErrNilObserver = errors.New("observer is required")
)

// IsInvalidTransition reports whether err is a rejected lifecycle request.
func IsInvalidTransition(err error) bool { return lifecycle.IsInvalidTransition(err) }
