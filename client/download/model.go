package download

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCancelled indicates the download was cancelled via context
	// before the stream completed.
	ErrCancelled = errors.New("download cancelled")

	// ErrTransport indicates the response stream failed mid-transfer.
	ErrTransport = errors.New("transport failure")

	// ErrWrite indicates the destination file could not be written.
	ErrWrite = errors.New("write failure")

	// ErrContentLengthMismatch indicates the byte count did not match
	// the expected length.
	ErrContentLengthMismatch = errors.New("content length mismatch")

	// ErrChecksumMismatch indicates the file checksum did not match
	// the expected value.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrGroupShutdown indicates the download queue was shut down.
	ErrGroupShutdown = errors.New("download queue shut down")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when the receive timeout configured via
// [WithReceiveTimeout] expires before the stream completes. Limit is
// the configured duration.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("download timed out after %v", e.Limit)
}

// UnknownLength is the total reported to progress callbacks when the
// response carries no usable length header.
const UnknownLength int64 = -1
