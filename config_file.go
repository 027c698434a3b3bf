package lineinput

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk form of Config.
type fileConfig struct {
	BufferedRead  bool   `yaml:"buffered_read"`
	BufferedWrite bool   `yaml:"buffered_write"`
	NullOnEOF     bool   `yaml:"null_on_eof"`
	Encoding      string `yaml:"encoding"`
	MaxLineSize   int    `yaml:"max_line_size"`
	ChunkSize     int    `yaml:"chunk_size"`
}

// LoadConfig reads a YAML reader configuration from path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig decodes a YAML reader configuration. Unknown keys are
// rejected. An empty document yields the default configuration.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	enc, err := EncodingByName(fc.Encoding)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BufferedRead:  fc.BufferedRead,
		BufferedWrite: fc.BufferedWrite,
		NullOnEOF:     fc.NullOnEOF,
		Encoding:      enc,
		MaxLineSize:   fc.MaxLineSize,
		ChunkSize:     fc.ChunkSize,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// EncodingByName resolves a WHATWG encoding label such as "utf-8",
// "latin1" or "windows-1252". The empty name is UTF-8.
func EncodingByName(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %q: %v", ErrInvalidConfig, name, err)
	}

	return enc, nil
}
