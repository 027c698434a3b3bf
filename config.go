package lineinput

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/javi11/lineinput/internal"
)

// Logger interface compatible with slog.Logger
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Config controls the shape of values produced and accepted by a Reader.
// It is copied at construction and never changes afterwards.
type Config struct {
	// BufferedRead makes Request return raw bytes instead of decoded text.
	BufferedRead bool
	// BufferedWrite makes Request accept []byte prompts instead of strings.
	BufferedWrite bool
	// NullOnEOF makes Request return a null Value at end of stream instead of
	// failing with ErrEndOfStream.
	NullOnEOF bool

	// Encoding converts between text and bytes. Defaults to UTF-8.
	Encoding encoding.Encoding
	Logger   Logger
	// MaxLineSize bounds the length of a line, delimiter excluded. Zero
	// means unbounded.
	MaxLineSize int
	// ChunkSize is the read size used when the reader wraps an io.Reader.
	ChunkSize int
}

// Validate reports whether the numeric limits are usable.
func (c Config) Validate() error {
	if c.MaxLineSize < 0 {
		return fmt.Errorf("%w: max line size %d", ErrInvalidConfig, c.MaxLineSize)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, c.ChunkSize)
	}
	return nil
}

type Option func(*Config)

// WithConfig replaces the whole configuration. Options applied after it
// still take effect.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

func WithBufferedRead(v bool) Option {
	return func(c *Config) {
		c.BufferedRead = v
	}
}

func WithBufferedWrite(v bool) Option {
	return func(c *Config) {
		c.BufferedWrite = v
	}
}

func WithNullOnEOF(v bool) Option {
	return func(c *Config) {
		c.NullOnEOF = v
	}
}

func WithEncoding(enc encoding.Encoding) Option {
	return func(c *Config) {
		c.Encoding = enc
	}
}

func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func WithMaxLineSize(n int) Option {
	return func(c *Config) {
		c.MaxLineSize = n
	}
}

func WithChunkSize(n int) Option {
	return func(c *Config) {
		c.ChunkSize = n
	}
}

var configDefault = Config{
	ChunkSize: internal.DefaultChunkSize,
}

func newConfig(opts ...Option) Config {
	cfg := configDefault
	for _, opt := range opts {
		opt(&cfg)
	}

	return mergeWithDefault(cfg)
}

func mergeWithDefault(config ...Config) Config {
	if len(config) == 0 {
		config = []Config{configDefault}
	}

	cfg := config[0]

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Encoding == nil {
		cfg.Encoding = unicode.UTF8
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = configDefault.ChunkSize
	}

	if cfg.MaxLineSize < 0 {
		cfg.MaxLineSize = 0
	}

	return cfg
}
