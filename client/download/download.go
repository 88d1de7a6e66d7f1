package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

// chunkSize is the read buffer size for each chunk pulled off the
// response stream.
const chunkSize = 32 * 1024

// Handle streams the response body to the resolved destination path,
// enforcing the configured bandwidth cap, receive timeout and
// cancellation. redirects is the number of redirects followed to reach
// the response; it feeds the synthetic headers a [PathFunc] destination
// observes. Handle does not close resp.Body; that remains the caller's
// responsibility, and closing it is also what unblocks a stalled read
// after Handle returns early.
//
// Exactly one outcome is produced per invocation: nil on success, or
// an error classified as transport, write, cancellation or timeout
// failure. On failure the partial file is deleted unless
// [WithKeepPartial] was given.
func Handle(ctx context.Context, resp *http.Response, redirects int, dest Destination, logger *slog.Logger, optFns ...Option) error {
	opts, err := resolve(optFns)
	if err != nil {
		return fmt.Errorf("applying option: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	path, err := dest.resolve(resp, redirects)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}

	if opts.skipExisting {
		if _, err := os.Stat(path); err == nil {
			logger.Info("skipping existing file", "path", path)
			return nil
		}
	}

	if opts.ReceiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, opts.ReceiveTimeout, &TimeoutError{Limit: opts.ReceiveTimeout})
		defer cancel()
	}

	total := expectedLength(resp.Header, opts.LengthHeader)

	sess, err := newSession(path, total, logger, opts)
	if err != nil {
		return err
	}

	err = pump(ctx, resp.Body, sess, opts)

	// The handle is released before any deletion so the file is not
	// removed out from under a live descriptor.
	if cerr := sess.close(); cerr != nil && err == nil {
		err = &Error{Err: ErrWrite, Detail: cerr.Error()}
	}

	if err == nil && total >= 0 && sess.received != total {
		err = &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", total, sess.received),
		}
	}

	if err == nil {
		err = opts.checksum.Verify()
	}

	if err != nil {
		if !opts.keepPartial {
			sess.remove()
		}
		return err
	}

	logger.Info("download complete", "session", sess.id, "path", path, "bytes", sess.received)

	return nil
}

// chunk is one ordered slice of the response stream, or the terminal
// read error.
type chunk struct {
	data []byte
	err  error
}

// pump consumes the stream one chunk at a time. The unbuffered channel
// is the backpressure mechanism: the producer cannot deliver chunk N+1
// until chunk N has been accepted, and the pump accepts a chunk only
// after the previous write has settled and the governor granted
// resumption. That serialization is what keeps the file's byte order
// identical to arrival order.
func pump(ctx context.Context, body io.Reader, sess *session, opts options) error {
	gov := newGovernor(opts.BandwidthCap)
	defer gov.stop()

	chunks := make(chan chunk)
	done := make(chan struct{})
	defer close(done)

	go produce(body, chunks, done)

	for {
		select {
		case <-ctx.Done():
			return classify(context.Cause(ctx))
		case c := <-chunks:
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					return nil
				}
				if ctx.Err() != nil {
					return classify(context.Cause(ctx))
				}
				return &Error{Err: ErrTransport, Detail: c.err.Error()}
			}

			if err := sess.write(c.data); err != nil {
				return err
			}
			gov.add(int64(len(c.data)))

			if opts.progressFn != nil {
				opts.progressFn(sess.received, sess.total, gov.speedNow())
			}

			if err := gov.wait(ctx); err != nil {
				return classify(err)
			}
		}
	}
}

// produce reads the body into two alternating buffers and hands each
// filled chunk to the pump. A buffer is only refilled after the pump
// has accepted the following chunk, by which point the pump is done
// with it. The final read error (io.EOF included) is delivered as its
// own chunk.
func produce(body io.Reader, chunks chan<- chunk, done <-chan struct{}) {
	bufs := [2][]byte{make([]byte, chunkSize), make([]byte, chunkSize)}

	for i := 0; ; i ^= 1 {
		n, err := body.Read(bufs[i])
		if n > 0 {
			select {
			case chunks <- chunk{data: bufs[i][:n]}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case chunks <- chunk{err: err}:
			case <-done:
			}
			return
		}
	}
}

// classify normalizes a context cause into one of the exported error
// kinds. The receive timeout's own cause passes through as a
// *TimeoutError; everything else, including a caller-supplied
// deadline, counts as cancellation.
func classify(cause error) error {
	var te *TimeoutError
	if errors.As(cause, &te) {
		return te
	}

	detail := "context cancelled"
	if cause != nil {
		detail = cause.Error()
	}

	return &Error{Err: ErrCancelled, Detail: detail}
}
