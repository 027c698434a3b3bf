// Package main provides inputcat, which copies files to standard output by
// feeding every line read by a prompted reader back as the prompt of the
// next request.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/javi11/lineinput"
)

var newline = []byte{lineinput.Delimiter}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:          "inputcat <file...>",
		Short:        "copy files to standard output one prompted line at a time",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), verbose)

			cfg := lineinput.Config{
				NullOnEOF:     true,
				BufferedRead:  true,
				BufferedWrite: true,
			}
			if configPath != "" {
				var err error
				if cfg, err = lineinput.LoadConfig(configPath); err != nil {
					return err
				}
			}
			cfg.Logger = logger

			for _, name := range args {
				if err := catFile(cmd.Context(), name, cmd.OutOrStdout(), cfg); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML reader configuration")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// nopCloser keeps Reader.Close from closing the shared output.
type nopCloser struct {
	io.Writer
}

func catFile(ctx context.Context, name string, out io.Writer, cfg lineinput.Config) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}

	r := lineinput.NewReaderFrom(f, nopCloser{out}, lineinput.WithConfig(cfg))
	defer func() {
		if err := r.Close(); err != nil {
			cfg.Logger.Warn("close failed", "file", name, "error", err)
		}
	}()

	v, err := r.Request(ctx)
	for err == nil && !v.IsNull() {
		v, err = r.Request(ctx, prompts(cfg, v)...)
	}
	if lineinput.IsEndOfStream(err) {
		// Without null-on-EOF the end of the file surfaces as an error.
		return nil
	}
	return err
}

// prompts echoes a line back in the representation the write mode expects.
func prompts(cfg lineinput.Config, v lineinput.Value) []any {
	if cfg.BufferedWrite {
		return []any{v.Bytes(), newline}
	}
	return []any{v.String(), "\n"}
}
