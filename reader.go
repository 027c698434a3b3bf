package lineinput

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/encoding"
)

// State is the lifecycle position of a Reader.
type State int32

const (
	// StateReady accepts requests.
	StateReady State = iota
	// StateExhausted is reached at end of stream in null-on-EOF mode. Every
	// later request returns a null Value.
	StateExhausted
	// StateFailed is reached at end of stream without null-on-EOF, or after
	// a source failure. Every later request returns the same error.
	StateFailed
	// StateClosed is reached after Close.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reader writes prompts to a sink and reads one line from a source per
// request, like a console input function.
//
// A Reader must not be used by more than one goroutine at a time; a request
// issued while another is in flight fails with ErrConcurrentRequest.
type Reader struct {
	cfg   Config
	src   Source
	sink  io.Writer
	lines *Splitter

	dec *encoding.Decoder
	enc *encoding.Encoder

	state   atomic.Int32
	failure error
	busy    atomic.Bool

	// Standard streams picked as defaults are never closed.
	ownsSource bool
	ownsSink   bool
	closeOnce  sync.Once
	closeErr   error
}

// NewReader returns a reader pulling lines from src and writing prompts to
// sink. A nil src reads os.Stdin and a nil sink writes os.Stdout.
func NewReader(src Source, sink io.Writer, opts ...Option) *Reader {
	cfg := newConfig(opts...)

	r := &Reader{
		cfg:        cfg,
		src:        src,
		sink:       sink,
		ownsSource: true,
		ownsSink:   true,
		dec:        cfg.Encoding.NewDecoder(),
		enc:        encoding.ReplaceUnsupported(cfg.Encoding.NewEncoder()),
	}
	if r.src == nil {
		r.src = NewReaderSource(os.Stdin, cfg.ChunkSize)
		r.ownsSource = false
	}
	if r.sink == nil {
		r.sink = os.Stdout
		r.ownsSink = false
	}
	r.lines = NewSplitter(r.src, WithLogger(cfg.Logger), WithMaxLineSize(cfg.MaxLineSize))

	return r
}

// NewReaderFrom wraps an io.Reader using the configured chunk size.
func NewReaderFrom(r io.Reader, sink io.Writer, opts ...Option) *Reader {
	cfg := newConfig(opts...)
	return NewReader(NewReaderSource(r, cfg.ChunkSize), sink, opts...)
}

// Config returns the configuration the reader was built with.
func (r *Reader) Config() Config {
	return r.cfg
}

// State reports whether the reader can still produce lines.
func (r *Reader) State() State {
	return State(r.state.Load())
}

// Request writes each prompt to the sink in order, then reads one line.
//
// Prompts must be []byte when BufferedWrite is set and string otherwise. A
// failed write aborts the request before anything is read. At end of stream
// Request returns a null Value in null-on-EOF mode and ErrEndOfStream
// otherwise; end of stream is final, but prompts are still written.
func (r *Reader) Request(ctx context.Context, prompts ...any) (Value, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return Value{}, ErrConcurrentRequest
	}
	defer r.busy.Store(false)

	if r.State() == StateClosed {
		return Value{}, ErrReaderClosed
	}

	payloads, err := r.encodePrompts(prompts)
	if err != nil {
		return Value{}, err
	}

	for i, p := range payloads {
		if err := writeFull(r.sink, p); err != nil {
			r.cfg.Logger.DebugContext(ctx, "prompt write failed", "index", i, "error", err)
			return Value{}, &SinkWriteError{Index: i, Err: err}
		}
	}

	// The source is not read again once the stream has ended.
	switch r.State() {
	case StateExhausted:
		return Null(), nil
	case StateFailed:
		return Value{}, r.failure
	}

	line, err := r.lines.Next(ctx)
	if err == io.EOF {
		if r.cfg.NullOnEOF {
			r.cfg.Logger.DebugContext(ctx, "end of stream, returning null")
			r.state.Store(int32(StateExhausted))
			return Null(), nil
		}
		r.cfg.Logger.DebugContext(ctx, "end of stream")
		return Value{}, r.fail(ErrEndOfStream)
	}
	if err != nil {
		return Value{}, r.fail(err)
	}

	return r.convert(line)
}

// Close closes the source and the sink when they implement io.Closer. The
// standard streams used as defaults are left open.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.state.Store(int32(StateClosed))

		var merr *multierror.Error
		if c, ok := r.src.(io.Closer); ok && r.ownsSource {
			if err := c.Close(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("close source: %w", err))
			}
		}
		if c, ok := r.sink.(io.Closer); ok && r.ownsSink {
			if err := c.Close(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("close sink: %w", err))
			}
		}
		r.closeErr = merr.ErrorOrNil()
	})

	return r.closeErr
}

func (r *Reader) fail(err error) error {
	r.failure = err
	r.state.Store(int32(StateFailed))
	return err
}

// encodePrompts converts every prompt before the first write so a type
// mismatch never leaves a partial prompt on the sink.
func (r *Reader) encodePrompts(prompts []any) ([][]byte, error) {
	if len(prompts) == 0 {
		return nil, nil
	}

	out := make([][]byte, len(prompts))
	for i, p := range prompts {
		if r.cfg.BufferedWrite {
			b, ok := p.([]byte)
			if !ok {
				return nil, fmt.Errorf("%w: prompt %d is %T, want []byte", ErrPromptType, i, p)
			}
			out[i] = b
			continue
		}

		s, ok := p.(string)
		if !ok {
			return nil, fmt.Errorf("%w: prompt %d is %T, want string", ErrPromptType, i, p)
		}
		b, err := r.enc.String(s)
		if err != nil {
			return nil, fmt.Errorf("encode prompt %d: %w", i, err)
		}
		out[i] = []byte(b)
	}

	return out, nil
}

func (r *Reader) convert(line []byte) (Value, error) {
	if r.cfg.BufferedRead {
		return Bytes(append([]byte{}, line...)), nil
	}

	text, err := r.dec.Bytes(line)
	if err != nil {
		return Value{}, fmt.Errorf("decode line: %w", err)
	}
	return Text(string(text)), nil
}

func writeFull(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n < len(p) {
		return io.ErrShortWrite
	}
	return nil
}
