// Package follow provides a line source over a file that is still being
// written, in the manner of tail -f.
package follow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"

	"github.com/javi11/lineinput/internal"
)

// Source reads a file from the start and, once it reaches the current end,
// waits for the file to grow instead of reporting the end of the stream.
// The stream ends when the file is removed or renamed and everything written
// to it has been read.
type Source struct {
	path    string
	f       *os.File
	watcher *fsnotify.Watcher
	buf     []byte
	gone    bool
}

// NewSource opens path and starts watching it. A size <= 0 selects the
// default chunk size.
func NewSource(path string, size int) (*Source, error) {
	if size <= 0 {
		size = internal.DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		_ = f.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	return &Source{
		path:    path,
		f:       f,
		watcher: watcher,
		buf:     make([]byte, size),
	}, nil
}

// Read returns the next chunk, blocking at the end of the file until it is
// written to again, removed or renamed, or ctx is done.
func (s *Source) Read(ctx context.Context) ([]byte, error) {
	for {
		n, err := s.f.Read(s.buf)
		if n > 0 {
			return s.buf[:n], nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if s.gone {
			return nil, io.EOF
		}

		if err := s.wait(ctx); err != nil {
			return nil, err
		}
	}
}

// wait blocks until the next event on the file.
func (s *Source) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev, ok := <-s.watcher.Events:
		if !ok {
			s.gone = true
			return nil
		}
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			s.gone = true
		}
		return nil
	case err, ok := <-s.watcher.Errors:
		if !ok {
			s.gone = true
			return nil
		}
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
}

// Close stops watching and closes the file.
func (s *Source) Close() error {
	var merr *multierror.Error
	if err := s.watcher.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := s.f.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}
