//go:generate go run go.uber.org/mock/mockgen -source=./source.go -destination=./mock_source.go -package=lineinput Source

// Package lineinput reads newline delimited lines from chunked byte sources
// and pairs each read with prompts written to a sink, the way a console
// input function does.
package lineinput

import (
	"context"
	"io"

	"github.com/javi11/lineinput/internal"
)

// maxConsecutiveEmptyReads matches bufio: a reader that keeps returning
// (0, nil) is treated as broken.
const maxConsecutiveEmptyReads = 100

// Source delivers chunks of bytes of arbitrary size.
//
// Read returns io.EOF once the source is exhausted. A chunk may be empty,
// and it only has to stay valid until the next call to Read.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) Read(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// ReaderSource reads chunks from an io.Reader into a reused buffer.
type ReaderSource struct {
	r   io.Reader
	buf []byte
	err error
}

// NewReaderSource returns a source reading at most size bytes per chunk.
// A size <= 0 selects the default chunk size.
func NewReaderSource(r io.Reader, size int) *ReaderSource {
	if size <= 0 {
		size = internal.DefaultChunkSize
	}

	return &ReaderSource{
		r:   r,
		buf: make([]byte, size),
	}
}

// Read checks ctx before each underlying read. The underlying reader itself
// is not interruptible.
func (s *ReaderSource) Read(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	for range maxConsecutiveEmptyReads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := s.r.Read(s.buf)
		if n > 0 {
			// Deliver the data now and the error on the next call.
			s.err = err
			return s.buf[:n], nil
		}
		if err != nil {
			s.err = err
			return nil, err
		}
	}

	return nil, io.ErrNoProgress
}

// Close closes the underlying reader if it is an io.Closer.
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ChanSource delivers chunks sent on a channel. A closed channel is the end
// of the stream.
type ChanSource struct {
	ch <-chan []byte
}

func NewChanSource(ch <-chan []byte) *ChanSource {
	return &ChanSource{ch: ch}
}

func (s *ChanSource) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case chunk, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	}
}

// NewChunkSource returns a source that delivers the given chunks in order
// and then reports io.EOF.
func NewChunkSource(chunks ...[]byte) Source {
	return SourceFunc(func(context.Context) ([]byte, error) {
		if len(chunks) == 0 {
			return nil, io.EOF
		}
		chunk := chunks[0]
		chunks = chunks[1:]
		return chunk, nil
	})
}
