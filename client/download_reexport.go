package client

import (
	"hash"
	"net/http"
	"time"

	"github.com/adamwoolhether/fetcher/client/download"
)

// ————————————————————————————————————————————————————————————————————
// Type aliases – re-export user-facing types from [download].
// ————————————————————————————————————————————————————————————————————

type (
	// DownloadOption configures a single download.
	DownloadOption = download.Option

	// DownloadError wraps a sentinel error with additional detail.
	DownloadError = download.Error

	// DownloadTimeoutError is returned when the configured receive
	// timeout expires before the stream completes.
	DownloadTimeoutError = download.TimeoutError

	// DownloadResult represents an in-flight or completed async download.
	DownloadResult = download.Result

	// Destination names where a downloaded body lands.
	Destination = download.Destination

	// ProgressFunc receives a progress update after every chunk.
	ProgressFunc = download.ProgressFunc
)

// ————————————————————————————————————————————————————————————————————
// Sentinel errors
// ————————————————————————————————————————————————————————————————————

var (
	// ErrContentLengthMismatch indicates the byte count did not match the expected length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch

	// ErrDownloadCancelled indicates the download was cancelled via context.
	ErrDownloadCancelled = download.ErrCancelled

	// ErrGroupShutdown indicates the download queue was shut down.
	ErrGroupShutdown = download.ErrGroupShutdown
)

// ————————————————————————————————————————————————————————————————————
// Destination constructors
// ————————————————————————————————————————————————————————————————————

// Path returns a Destination for a literal file path.
func Path(p string) Destination { return download.Path(p) }

// PathFunc returns a Destination derived from the response headers.
func PathFunc(fn func(http.Header) (string, error)) Destination { return download.PathFunc(fn) }

// ————————————————————————————————————————————————————————————————————
// Download option forwarding functions
// ————————————————————————————————————————————————————————————————————

// WithBandwidthCap limits steady-state download throughput to
// bytesPerSec. Zero means unbounded.
func WithBandwidthCap(bytesPerSec int64) DownloadOption {
	return download.WithBandwidthCap(bytesPerSec)
}

// WithReceiveTimeout bounds the whole receive operation.
func WithReceiveTimeout(d time.Duration) DownloadOption {
	return download.WithReceiveTimeout(d)
}

// WithLengthHeader overrides the header consulted for the expected total size.
func WithLengthHeader(name string) DownloadOption { return download.WithLengthHeader(name) }

// WithResume opens the destination in append mode, continuing a partial download.
func WithResume() DownloadOption { return download.WithResume() }

// WithKeepPartial leaves the partially written file in place on failure.
func WithKeepPartial() DownloadOption { return download.WithKeepPartial() }

// WithChecksum enables checksum validation of the downloaded file.
// h is a [hash.Hash] instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) DownloadOption {
	return download.WithChecksum(h, expected)
}

// WithProgress enables periodic download progress logging.
func WithProgress() DownloadOption { return download.WithProgress() }

// WithProgressFunc invokes fn after every chunk with the received
// byte count, the expected total and the current speed.
func WithProgressFunc(fn ProgressFunc) DownloadOption { return download.WithProgressFunc(fn) }

// WithSkipExisting causes a download to return nil immediately when
// the destination file already exists.
func WithSkipExisting() DownloadOption { return download.WithSkipExisting() }

// WithBatch activates batch mode by creating a download queue with the given
// concurrency limit. If maxConcurrent <= 0, concurrency is unlimited.
func WithBatch(maxConcurrent int) DownloadOption { return download.WithBatch(maxConcurrent) }
