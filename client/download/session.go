package download

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// session owns the destination file handle and byte accounting for a
// single download invocation. Sessions are never shared: every Handle
// call creates its own, so concurrent downloads stay independent.
type session struct {
	id     string
	path   string
	logger *slog.Logger

	file   *os.File
	writer io.Writer

	received int64
	total    int64

	closeOnce  sync.Once
	closeErr   error
	removeOnce sync.Once
}

// newSession opens the destination file, creating missing parent
// directories. A fresh download truncates, a resumed one appends.
func newSession(path string, total int64, logger *slog.Logger, opts options) (*session, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &Error{Err: ErrWrite, Detail: fmt.Sprintf("creating destination dir: %v", err)}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if opts.resume {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, &Error{Err: ErrWrite, Detail: fmt.Sprintf("opening destination: %v", err)}
	}

	s := &session{
		id:     uuid.NewString(),
		path:   path,
		logger: logger,
		file:   file,
		total:  total,
	}

	var writer io.Writer = file
	if opts.checksum != nil {
		writer = io.MultiWriter(writer, opts.checksum)
	}
	if opts.progressLog {
		writer = &progressWriter{
			w:         writer,
			logger:    logger.With("session", s.id),
			total:     total,
			startTime: time.Now(),
		}
	}
	s.writer = writer

	return s, nil
}

// write commits one chunk. Writes are strictly sequential; the pump
// never issues the next until this one has settled.
func (s *session) write(p []byte) error {
	n, err := s.writer.Write(p)
	s.received += int64(n)
	if err != nil {
		return &Error{Err: ErrWrite, Detail: err.Error()}
	}
	if n < len(p) {
		return &Error{Err: ErrWrite, Detail: io.ErrShortWrite.Error()}
	}

	return nil
}

// close flushes and releases the file handle. Idempotent: only the
// first invocation does work, later ones return the recorded result.
func (s *session) close() error {
	s.closeOnce.Do(func() {
		if err := s.file.Sync(); err != nil && !errors.Is(err, os.ErrClosed) {
			s.closeErr = fmt.Errorf("syncing destination: %w", err)
		}
		if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.closeErr == nil {
			s.closeErr = fmt.Errorf("closing destination: %w", err)
		}
	})

	return s.closeErr
}

// remove deletes the destination file if it still exists. At most one
// deletion is ever attempted per session.
func (s *session) remove() {
	s.removeOnce.Do(func() {
		if _, err := os.Stat(s.path); err != nil {
			return
		}
		if err := os.Remove(s.path); err != nil {
			s.logger.Error("removing partial download", "session", s.id, "path", s.path, "error", err)
		}
	})
}
