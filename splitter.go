package lineinput

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/javi11/lineinput/internal"
)

// Delimiter is the only byte that ends a line.
const Delimiter = '\n'

// SplitterStats counts what a splitter has produced and consumed.
type SplitterStats struct {
	Lines  int64
	Chunks int64
	Bytes  int64
}

// Splitter turns the chunks of a Source into newline delimited lines.
// It is single pass and not safe for concurrent use.
type Splitter struct {
	src     Source
	pending internal.Pending
	maxLine int
	logger  Logger

	eof   bool
	err   error
	stats SplitterStats
}

// NewSplitter returns a splitter over src. Only the Logger and MaxLineSize
// options apply.
func NewSplitter(src Source, opts ...Option) *Splitter {
	cfg := newConfig(opts...)

	return &Splitter{
		src:     src,
		maxLine: cfg.MaxLineSize,
		logger:  cfg.Logger,
	}
}

// Next returns the next line without its delimiter. The slice is only valid
// until the following call to Next.
//
// Once the source is exhausted Next returns io.EOF. A source failure is
// returned as a *SourceReadError, and so is every later call.
func (s *Splitter) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	for {
		if line, ok := s.pending.Cut(Delimiter); ok {
			if err := s.checkLen(len(line)); err != nil {
				return nil, err
			}
			s.stats.Lines++
			return line, nil
		}

		if s.eof {
			rest := s.pending.Drain()
			if err := s.checkLen(len(rest)); err != nil {
				return nil, err
			}
			s.err = io.EOF
			if len(rest) > 0 {
				s.stats.Lines++
				return rest, nil
			}
			return nil, io.EOF
		}

		if err := s.checkLen(s.pending.Len()); err != nil {
			return nil, err
		}

		chunk, err := s.src.Read(ctx)
		if len(chunk) > 0 {
			s.stats.Chunks++
			s.stats.Bytes += int64(len(chunk))
			s.pending.Append(chunk)
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.eof = true
		default:
			s.logger.DebugContext(ctx, "line source failed", "error", err, "pending", s.pending.Len())
			s.err = &SourceReadError{Err: err}
			return nil, s.err
		}
	}
}

// Lines returns the remaining lines as a sequence. Iteration stops at the
// end of the stream; a failure is yielded once as the final pair.
func (s *Splitter) Lines(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			line, err := s.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}

// Buffered returns the number of received bytes not yet emitted as a line.
func (s *Splitter) Buffered() int {
	return s.pending.Len()
}

// Stats returns the counters accumulated so far.
func (s *Splitter) Stats() SplitterStats {
	return s.stats
}

// checkLen fails the splitter for good when n bytes exceed the line limit.
// The same limit applies to complete lines and to undelimited pending bytes,
// so the outcome does not depend on how the input was chunked.
func (s *Splitter) checkLen(n int) error {
	if s.maxLine <= 0 || n <= s.maxLine {
		return nil
	}
	s.err = fmt.Errorf("%w: %d bytes before a delimiter, limit %d", ErrLineTooLong, n, s.maxLine)
	return s.err
}
