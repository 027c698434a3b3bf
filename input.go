package lineinput

import (
	"context"
	"io"
	"sync"
)

// Payload is the representation of prompts and lines in a Prompter.
type Payload interface {
	string | []byte
}

// Prompter is a Reader with statically typed prompts (W) and lines (R).
// The write and read modes follow from the type parameters.
type Prompter[W, R Payload] struct {
	r *Reader
}

// NewPrompter builds a Prompter. BufferedWrite, BufferedRead and NullOnEOF
// options are overridden.
func NewPrompter[W, R Payload](src Source, sink io.Writer, opts ...Option) *Prompter[W, R] {
	opts = append(opts,
		WithBufferedWrite(isBytes[W]()),
		WithBufferedRead(isBytes[R]()),
		WithNullOnEOF(true),
	)

	return &Prompter[W, R]{r: NewReader(src, sink, opts...)}
}

// Read writes the prompts and returns the next line. It fails with
// ErrEndOfStream once the source is exhausted.
func (p *Prompter[W, R]) Read(ctx context.Context, prompts ...W) (R, error) {
	line, ok, err := p.ReadNullable(ctx, prompts...)
	if err != nil {
		return line, err
	}
	if !ok {
		return line, ErrEndOfStream
	}
	return line, nil
}

// ReadNullable is like Read but reports the end of the stream with ok set
// to false instead of an error.
func (p *Prompter[W, R]) ReadNullable(ctx context.Context, prompts ...W) (line R, ok bool, err error) {
	args := make([]any, len(prompts))
	for i, pr := range prompts {
		args[i] = any(pr)
	}

	v, err := p.r.Request(ctx, args...)
	if err != nil || v.IsNull() {
		return line, false, err
	}

	switch out := any(&line).(type) {
	case *string:
		*out = v.String()
	case *[]byte:
		*out = v.Bytes()
	}
	return line, true, nil
}

// Reader returns the underlying Reader.
func (p *Prompter[W, R]) Reader() *Reader {
	return p.r
}

// Close closes the underlying Reader.
func (p *Prompter[W, R]) Close() error {
	return p.r.Close()
}

func isBytes[T Payload]() bool {
	var zero T
	_, ok := any(zero).([]byte)
	return ok
}

var (
	stdioOnce sync.Once
	stdio     *Prompter[string, string]
)

func stdPrompter() *Prompter[string, string] {
	stdioOnce.Do(func() {
		stdio = NewPrompter[string, string](nil, nil)
	})
	return stdio
}

// Input writes the prompts to standard output and returns the next line of
// standard input. It fails with ErrEndOfStream at the end of input.
func Input(ctx context.Context, prompts ...string) (string, error) {
	return stdPrompter().Read(ctx, prompts...)
}

// InputNullable is like Input but reports the end of input with ok set to
// false.
func InputNullable(ctx context.Context, prompts ...string) (string, bool, error) {
	return stdPrompter().ReadNullable(ctx, prompts...)
}
