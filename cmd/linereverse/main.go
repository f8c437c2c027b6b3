// Command linereverse reverses the code points of every line in a UTF-8
// text file, preserving line terminators, using a three-stage pipeline of
// bounded lock-free queues.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/i5heu/linereverse/internal/ioadapter"
	"github.com/i5heu/linereverse/internal/pipeline"
	"github.com/i5heu/linereverse/internal/reverse"
	"github.com/i5heu/linereverse/pkg/config"
)

const (
	exitOK = iota
	exitUsage
	exitConfigError
	exitIOError
	exitMalformedInput
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}

	logger := newLogger(cfg.LogLevel)

	in, err := os.OpenFile(cfg.InputPath, os.O_RDONLY, 0)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.InputPath).Msg("failed to open input file")
		return exitIOError
	}
	defer in.Close()

	out, err := os.OpenFile(cfg.OutputPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.OutputPath).Msg("failed to open output file")
		return exitIOError
	}
	defer out.Close()

	var reader ioadapter.Reader = ioadapter.NewFileAdapter(in)
	var bar *progressbar.ProgressBar
	if cfg.ShowProgress {
		bar = newProgressBar(in)
		reader = &progressReader{inner: reader, bar: bar}
	}

	opts := pipeline.Options{
		BufSize:       int(cfg.BufSize),
		BufferCount:   int(cfg.BufferCount),
		QueueCapacity: int(cfg.QueueCapacity),
		CPUAffinity:   cfg.CPUAffinity,
		Reader:        reader,
		Writer:        ioadapter.NewFileAdapter(out),
		Logger:        logger,
	}

	report, err := pipeline.Run(opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return exitCodeFor(err)
	}

	logger.Info().
		Int64("bytes_read", report.BytesRead).
		Int64("bytes_written", report.BytesWritten).
		Int64("lines", report.LinesProcessed).
		Dur("duration", report.Duration).
		Msg("done")
	return exitOK
}

func exitCodeFor(err error) int {
	var malformed *reverse.MalformedInputError
	var ioErr *ioadapter.IOError
	switch {
	case errors.As(err, &malformed):
		return exitMalformedInput
	case errors.As(err, &ioErr):
		return exitIOError
	default:
		return exitIOError
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

// newProgressBar sizes a byte progress bar to the input file's length,
// falling back to a spinner (progressbar.DefaultBytes accepts -1 for this)
// when the size can't be determined, e.g. the input is a pipe.
func newProgressBar(f *os.File) *progressbar.ProgressBar {
	size := int64(-1)
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		size = info.Size()
	}
	return progressbar.DefaultBytes(size, "reversing")
}

// progressReader wraps a Reader, driving a progressbar.ProgressBar with
// every byte actually consumed from the underlying file.
type progressReader struct {
	inner ioadapter.Reader
	bar   *progressbar.ProgressBar
}

func (p *progressReader) Read(dst []byte) (int, error) {
	n, err := p.inner.Read(dst)
	if n > 0 {
		_, _ = p.bar.Write(dst[:n])
	}
	if err != nil && err != io.EOF {
		return n, err
	}
	return n, err
}
