// Package main provides linecat, which copies the lines of files (or standard
// input) to standard output through the line splitter.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/javi11/lineinput"
	"github.com/javi11/lineinput/follow"
)

type options struct {
	chunkSize   int
	maxLineSize int
	follow      bool
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "linecat [file...]",
		Short:        "copy lines of files to standard output",
		Long:         "With no file, or when file is -, read standard input.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.follow && len(args) != 1 {
				return fmt.Errorf("--follow needs exactly one file")
			}
			if len(args) == 0 {
				args = []string{"-"}
			}

			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()

			for _, name := range args {
				if err := catFile(cmd.Context(), name, cmd.InOrStdin(), out, opts, logger); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "bytes per read (0 = default)")
	cmd.Flags().IntVar(&opts.maxLineSize, "max-line-size", 0, "fail on lines longer than this (0 = unlimited)")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "keep reading as the file grows, until it is removed or renamed")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log per-file statistics")

	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openSource(name string, stdin io.Reader, opts options) (lineinput.Source, func() error, error) {
	if name == "-" {
		return lineinput.NewReaderSource(stdin, opts.chunkSize), func() error { return nil }, nil
	}

	if opts.follow {
		src, err := follow.NewSource(name, opts.chunkSize)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	src := lineinput.NewReaderSource(f, opts.chunkSize)
	return src, src.Close, nil
}

func catFile(ctx context.Context, name string, stdin io.Reader, out *bufio.Writer, opts options, logger *slog.Logger) error {
	src, closeSrc, err := openSource(name, stdin, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSrc(); err != nil {
			logger.Warn("close failed", "file", name, "error", err)
		}
	}()

	s := lineinput.NewSplitter(src, lineinput.WithLogger(logger), lineinput.WithMaxLineSize(opts.maxLineSize))
	for line, err := range s.Lines(ctx) {
		if err != nil {
			return err
		}
		if _, err := out.Write(line); err != nil {
			return err
		}
		if err := out.WriteByte(lineinput.Delimiter); err != nil {
			return err
		}
		if opts.follow {
			if err := out.Flush(); err != nil {
				return err
			}
		}
	}

	stats := s.Stats()
	logger.Debug("file done", "file", name, "lines", stats.Lines, "chunks", stats.Chunks, "bytes", stats.Bytes)
	return nil
}
