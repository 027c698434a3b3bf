package lineinput

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/encoding/charmap"
)

var scenarioPrompts = []string{
	"Enter something for first line: ",
	"Enter something for second line: ",
	"Enter something for third line: ",
	"Enter something for fourth line: ",
}

// ioLog records sink writes and source reads in the order they happen.
type ioLog struct {
	events []string
}

func (l *ioLog) Write(p []byte) (int, error) {
	l.events = append(l.events, "w:"+string(p))
	return len(p), nil
}

func (l *ioLog) source(data []byte) Source {
	chunks := NewChunkSource(oneByteChunks(data)...)
	return SourceFunc(func(ctx context.Context) ([]byte, error) {
		l.events = append(l.events, "r")
		return chunks.Read(ctx)
	})
}

type failingWriter struct {
	failAt int
	writes int
	err    error
	buf    bytes.Buffer
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.writes == w.failAt {
		return 0, w.err
	}
	w.writes++
	return w.buf.Write(p)
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

type errCloser struct {
	io.Writer
	err    error
	closed int
}

func (c *errCloser) Close() error {
	c.closed++
	return c.err
}

type closingSource struct {
	Source
	err    error
	closed int
}

func (c *closingSource) Close() error {
	c.closed++
	return c.err
}

func TestReader_PromptsThenReads(t *testing.T) {
	log := &ioLog{}
	r := NewReader(log.source([]byte(scenarioInput)), log)
	ctx := context.Background()

	for i, prompt := range scenarioPrompts {
		start := len(log.events)

		v, err := r.Request(ctx, prompt)
		require.NoError(t, err)
		assert.Equal(t, KindText, v.Kind())
		assert.Equal(t, scenarioLines[i], v.String())

		calls := log.events[start:]
		require.GreaterOrEqual(t, len(calls), 2)
		assert.Equal(t, "w:"+prompt, calls[0], "prompt must be written before reading")
		for _, e := range calls[1:] {
			assert.Equal(t, "r", e)
		}
	}

	_, err := r.Request(ctx, "Enter something for fifth line: ")
	assert.ErrorIs(t, err, ErrEndOfStream)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, IsEndOfStream(err))
	assert.Equal(t, StateFailed, r.State())

	// End of stream is final: the prompt is still written but the source is
	// not read again.
	n := len(log.events)
	_, err = r.Request(ctx, "again: ")
	assert.ErrorIs(t, err, ErrEndOfStream)
	assert.Equal(t, []string{"w:again: "}, log.events[n:])
}

func TestReader_NullOnEOF(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(NewChunkSource([]byte(scenarioInput)), &out, WithNullOnEOF(true))
	ctx := context.Background()

	for i, prompt := range scenarioPrompts {
		v, err := r.Request(ctx, prompt)
		require.NoError(t, err)
		assert.False(t, v.IsNull())
		assert.Equal(t, scenarioLines[i], v.String())
	}

	v, err := r.Request(ctx, "Enter something for fifth line: ")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.Equal(t, StateExhausted, r.State())

	v, err = r.Request(ctx)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = r.Request(ctx, "sixth: ")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	assert.Equal(t, strings.Join(scenarioPrompts, "")+"Enter something for fifth line: sixth: ", out.String())
}

func TestReader_PromptsWrittenAfterEOF(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		nullOnEOF bool
	}{
		{name: "null on EOF", nullOnEOF: true},
		{name: "end of stream error", nullOnEOF: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := NewMockSource(ctrl)
			gomock.InOrder(
				src.EXPECT().Read(gomock.Any()).Return([]byte("x\n"), nil),
				src.EXPECT().Read(gomock.Any()).Return(nil, io.EOF),
			)

			var out bytes.Buffer
			r := NewReader(src, &out, WithNullOnEOF(tt.nullOnEOF))

			v, err := r.Request(ctx, "p1 ")
			require.NoError(t, err)
			assert.Equal(t, "x", v.String())

			for _, prompt := range []string{"p2 ", "p3 "} {
				v, err = r.Request(ctx, prompt)
				if tt.nullOnEOF {
					require.NoError(t, err)
					assert.True(t, v.IsNull())
				} else {
					assert.ErrorIs(t, err, ErrEndOfStream)
				}
			}

			assert.Equal(t, "p1 p2 p3 ", out.String())
		})
	}
}

func TestReader_BufferedRead(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(NewChunkSource([]byte(scenarioInput)), &out, WithBufferedRead(true))
	ctx := context.Background()

	var got [][]byte
	for _, prompt := range scenarioPrompts {
		v, err := r.Request(ctx, prompt)
		require.NoError(t, err)
		assert.Equal(t, KindBytes, v.Kind())
		got = append(got, v.Bytes())
	}

	for i, b := range got {
		assert.Equal(t, []byte(scenarioLines[i]), b)
	}

	// Values are copies: scribbling on one does not affect the others.
	got[0][0] = 'X'
	assert.Equal(t, []byte(scenarioLines[1]), got[1])

	_, err := r.Request(ctx, "more: ")
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestReader_BufferedWrite(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(NewChunkSource([]byte(scenarioInput)), &out, WithBufferedWrite(true))
	ctx := context.Background()

	for i, prompt := range scenarioPrompts {
		v, err := r.Request(ctx, []byte(prompt))
		require.NoError(t, err)
		assert.Equal(t, scenarioLines[i], v.String())
	}
	assert.Equal(t, strings.Join(scenarioPrompts, ""), out.String())

	_, err := r.Request(ctx, []byte("more: "))
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestReader_MultiplePromptsInOrder(t *testing.T) {
	log := &ioLog{}
	r := NewReader(log.source([]byte(scenarioInput)), log)
	ctx := context.Background()

	for i, prompt := range scenarioPrompts {
		start := len(log.events)
		v, err := r.Request(ctx, prompt, "\n")
		require.NoError(t, err)
		assert.Equal(t, scenarioLines[i], v.String())
		assert.Equal(t, []string{"w:" + prompt, "w:\n"}, log.events[start:start+2])
	}
}

func TestReader_NoPrompt(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(NewChunkSource([]byte("only\n")), &out)

	v, err := r.Request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "only", v.String())
	assert.Zero(t, out.Len())
}

func TestReader_PromptTypeMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Read(gomock.Any()).Return([]byte("line\n"), nil).Times(1)

	var out bytes.Buffer
	r := NewReader(src, &out)
	ctx := context.Background()

	_, err := r.Request(ctx, "ok", []byte("wrong"))
	assert.ErrorIs(t, err, ErrPromptType)
	assert.Zero(t, out.Len(), "nothing may be written when a prompt has the wrong type")
	assert.Equal(t, StateReady, r.State())

	v, err := r.Request(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, "line", v.String())

	buffered := NewReader(src, &out, WithBufferedWrite(true))
	_, err = buffered.Request(ctx, "text")
	assert.ErrorIs(t, err, ErrPromptType)
}

func TestReader_SinkWriteErrorAbortsBeforeRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	// No read expected for the failed request.

	broken := errors.New("pipe closed")
	w := &failingWriter{failAt: 1, err: broken}
	r := NewReader(src, w, WithNullOnEOF(true))

	_, err := r.Request(context.Background(), "first", "second", "third")
	require.Error(t, err)

	var swe *SinkWriteError
	require.ErrorAs(t, err, &swe)
	assert.Equal(t, 1, swe.Index)
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, "first", w.buf.String())
	assert.Equal(t, StateReady, r.State())
}

func TestReader_ShortWrite(t *testing.T) {
	r := NewReader(NewChunkSource(), shortWriter{})

	_, err := r.Request(context.Background(), "prompt")
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestReader_SourceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	boom := errors.New("device gone")
	src.EXPECT().Read(gomock.Any()).Return(nil, boom).Times(1)

	var out bytes.Buffer
	r := NewReader(src, &out, WithNullOnEOF(true))
	ctx := context.Background()

	_, err := r.Request(ctx, "> ")
	var sre *SourceReadError
	require.ErrorAs(t, err, &sre)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsEndOfStream(err), "a read failure is not end of stream")
	assert.Equal(t, StateFailed, r.State())

	_, err = r.Request(ctx, "> ")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "> > ", out.String())
}

func TestReader_EmptySource(t *testing.T) {
	r := NewReader(NewChunkSource(), io.Discard)
	_, err := r.Request(context.Background())
	assert.ErrorIs(t, err, ErrEndOfStream)
	assert.Equal(t, 0, r.lines.pending.Cap())

	nullable := NewReader(NewChunkSource(), io.Discard, WithNullOnEOF(true))
	v, err := nullable.Request(context.Background())
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestReader_ConcurrentRequestRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan []byte)
	src := SourceFunc(func(ctx context.Context) ([]byte, error) {
		select {
		case <-started:
		default:
			close(started)
		}
		chunk, ok := <-release
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	})

	r := NewReader(src, io.Discard)
	ctx := context.Background()

	type result struct {
		v   Value
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := r.Request(ctx)
		done <- result{v, err}
	}()

	<-started
	_, err := r.Request(ctx)
	assert.ErrorIs(t, err, ErrConcurrentRequest)

	release <- []byte("late\n")
	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, "late", res.v.String())
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request did not finish")
	}

	close(release)
	_, err = r.Request(ctx)
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestReader_Encoding(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(NewChunkSource([]byte("caf\xe9\n")), &out, WithEncoding(charmap.Windows1252))

	v, err := r.Request(context.Background(), "é? ")
	require.NoError(t, err)
	assert.Equal(t, "café", v.String())
	assert.Equal(t, []byte("\xe9? "), out.Bytes())
}

func TestReader_InvalidUTF8IsReplaced(t *testing.T) {
	r := NewReader(NewChunkSource([]byte("a\xffb\n")), io.Discard)

	v, err := r.Request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a\uFFFDb", v.String())

	raw := NewReader(NewChunkSource([]byte("a\xffb\n")), io.Discard, WithBufferedRead(true))
	v, err = raw.Request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("a\xffb"), v.Bytes())
}

func TestReader_Close(t *testing.T) {
	srcErr := errors.New("source close failed")
	sinkErr := errors.New("sink close failed")
	src := &closingSource{Source: NewChunkSource([]byte("x\n")), err: srcErr}
	sink := &errCloser{Writer: io.Discard, err: sinkErr}

	r := NewReader(src, sink)
	err := r.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, srcErr)
	assert.ErrorIs(t, err, sinkErr)
	assert.Equal(t, StateClosed, r.State())

	// Idempotent.
	assert.Equal(t, err, r.Close())
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, sink.closed)

	_, err = r.Request(context.Background())
	assert.ErrorIs(t, err, ErrReaderClosed)
}

func TestReader_CloseClean(t *testing.T) {
	src := &closingSource{Source: NewChunkSource()}
	r := NewReader(src, io.Discard)
	assert.NoError(t, r.Close())
	assert.Equal(t, 1, src.closed)
}

func TestNewReaderFrom(t *testing.T) {
	r := NewReaderFrom(strings.NewReader(scenarioInput), io.Discard, WithChunkSize(3), WithNullOnEOF(true))
	ctx := context.Background()

	var got []string
	for {
		v, err := r.Request(ctx)
		require.NoError(t, err)
		if v.IsNull() {
			break
		}
		got = append(got, v.String())
	}
	assert.Equal(t, scenarioLines, got)
	assert.Equal(t, 3, r.Config().ChunkSize)
}
