// Package apperr holds the error kinds shared by the forum core. Lower layers
// wrap these sentinels with github.com/pkg/errors and callers match them
// with errors.Is.
package apperr

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	// ErrUnavailable marks a storage timeout or cancellation; the caller may retry.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrInternal marks a failure the caller cannot act on. It hides the
	// typed cause so the failure is never reported as a client error.
	ErrInternal = errors.New("internal error")
)

// Validation returns an ErrValidation carrying msg.
func Validation(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// NotFound returns an ErrNotFound naming the missing thing.
func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// Internal reports err as an ErrInternal. Retryable storage errors keep
// their kind.
func Internal(err error, msg string) error {
	if Retryable(err) {
		return errors.Wrap(err, msg)
	}
	return errors.Wrapf(ErrInternal, "%s: %v", msg, err)
}

// Storage wraps a storage error with msg, converting context deadline and
// cancellation into ErrUnavailable so they surface as retryable.
func Storage(err error, msg string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.Wrap(&unavailable{cause: err}, msg)
	}
	return errors.Wrap(err, msg)
}

type unavailable struct {
	cause error
}

func (u *unavailable) Error() string { return "storage unavailable: " + u.cause.Error() }

func (u *unavailable) Is(target error) bool { return target == ErrUnavailable }

func (u *unavailable) Unwrap() error { return u.cause }

// Retryable reports whether err is worth retrying by the client.
func Retryable(err error) bool {
	return stderrors.Is(err, ErrUnavailable)
}

// Client reports whether err is one of the typed errors surfaced to callers
// as-is rather than logged as an internal failure.
func Client(err error) bool {
	for _, target := range []error{ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrConflict, ErrValidation} {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}
