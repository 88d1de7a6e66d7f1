package download

import (
	"errors"
	"hash"
	"net/http"
	"time"

	"github.com/adamwoolhether/fetcher/internal/check"
)

// ProgressFunc receives a progress update after every chunk is
// committed to the destination file. total is [UnknownLength] when the
// response carries no usable length header. speed is the byte rate
// measured over the governor's last full window.
type ProgressFunc func(received, total, speed int64)

// Option defines optional settings for downloading files.
type Option func(*options) error

// settings carries the validated numeric knobs; kept separate so the
// struct tags stay visible to the validator.
type settings struct {
	BandwidthCap   int64         `json:"bandwidthCap" validate:"gte=0"`
	ReceiveTimeout time.Duration `json:"receiveTimeout" validate:"gte=0"`
	LengthHeader   string        `json:"lengthHeader" validate:"required"`
}

type options struct {
	settings

	resume       bool
	keepPartial  bool
	progressLog  bool
	progressFn   ProgressFunc
	checksum     *checksumVerifier
	skipExisting bool
	queue        *Queue
}

// resolve applies the option funcs over defaults and validates the result.
func resolve(optFns []Option) (options, error) {
	opts := options{
		settings: settings{
			LengthHeader: lengthHeaderDefault,
		},
	}

	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return options{}, err
		}
	}

	if err := check.Struct(opts.settings); err != nil {
		return options{}, err
	}

	return opts, nil
}

// lengthHeaderDefault is the generic length header consulted for the
// expected total size.
const lengthHeaderDefault = "Content-Length"

// WithBandwidthCap limits steady-state throughput to bytesPerSec,
// measured over one-second windows. Zero means unbounded.
func WithBandwidthCap(bytesPerSec int64) Option {
	return func(opts *options) error {
		opts.BandwidthCap = bytesPerSec
		return nil
	}
}

// WithReceiveTimeout bounds the whole receive operation. When the
// deadline expires before the stream completes, the download fails
// with a [TimeoutError] carrying d.
func WithReceiveTimeout(d time.Duration) Option {
	return func(opts *options) error {
		opts.ReceiveTimeout = d
		return nil
	}
}

// WithLengthHeader overrides the header consulted for the expected
// total size. The default is Content-Length.
func WithLengthHeader(name string) Option {
	return func(opts *options) error {
		if name == "" {
			return errors.New("length header must not be empty")
		}
		opts.LengthHeader = http.CanonicalHeaderKey(name)
		return nil
	}
}

// WithResume opens the destination in append mode, continuing a
// partial download after its existing bytes instead of truncating.
func WithResume() Option {
	return func(opts *options) error {
		opts.resume = true
		return nil
	}
}

// WithKeepPartial leaves the partially written destination file in
// place when the download fails. By default it is deleted.
func WithKeepPartial() Option {
	return func(opts *options) error {
		opts.keepPartial = true
		return nil
	}
}

// WithProgress enables periodic download progress logging via the
// logger supplied to Handle.
func WithProgress() Option {
	return func(opts *options) error {
		opts.progressLog = true
		return nil
	}
}

// WithProgressFunc invokes fn after every chunk with the received
// byte count, the expected total and the current speed.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress func must not be nil")
		}
		opts.progressFn = fn
		return nil
	}
}

// WithChecksum enables checksum validation of the downloaded file.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

// WithSkipExisting causes Handle to return nil immediately when
// the destination file already exists, avoiding a redundant download.
func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}

// WithBatch activates batch mode by creating a download queue with the
// given concurrency limit. If maxConcurrent <= 0, concurrency is
// unlimited. Cannot be combined with [Result.Add], which reuses the
// existing queue.
func WithBatch(maxConcurrent int) Option {
	return func(opts *options) error {
		if opts.queue != nil {
			return errors.New("batch queue already configured")
		}
		opts.queue = NewQueue(maxConcurrent)
		return nil
	}
}

// withBatch attaches an existing queue, used by [Result.Add].
func withBatch(q *Queue) Option {
	return func(opts *options) error {
		if opts.queue != nil {
			return errors.New("batch queue already configured")
		}
		opts.queue = q
		return nil
	}
}
