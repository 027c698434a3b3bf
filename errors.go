package lineinput

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Sentinel errors for readers and splitters.
var (
	// ErrEndOfStream indicates the source was exhausted while a line was
	// expected. It matches io.ErrUnexpectedEOF with errors.Is.
	ErrEndOfStream = fmt.Errorf("end of stream: %w", io.ErrUnexpectedEOF)

	// ErrPromptType indicates a prompt was not of the type the write mode
	// expects: []byte when BufferedWrite is set, string otherwise.
	ErrPromptType = errors.New("prompt type does not match write mode")

	// ErrLineTooLong indicates a line longer than MaxLineSize.
	ErrLineTooLong = errors.New("line too long")

	// ErrConcurrentRequest indicates a Request was issued while another one
	// on the same reader had not returned yet.
	ErrConcurrentRequest = errors.New("request already in flight")

	// ErrReaderClosed indicates the reader has been closed.
	ErrReaderClosed = errors.New("reader is closed")

	// ErrInvalidConfig indicates the reader configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsEndOfStream checks if the error is the end-of-stream failure of a reader
// that is not in null-on-EOF mode.
func IsEndOfStream(err error) bool {
	return errors.Is(err, ErrEndOfStream)
}

// SinkWriteError wraps an error returned by the sink while writing a prompt.
type SinkWriteError struct {
	// Index is the position of the failed prompt in the Request arguments.
	Index int
	Err   error
}

func (e *SinkWriteError) Error() string {
	return "write prompt " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}

// SourceReadError wraps an error returned by the source. A splitter that
// produced one keeps returning it.
type SourceReadError struct {
	Err error
}

func (e *SourceReadError) Error() string {
	return "read source: " + e.Err.Error()
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}
