// Command hexbin converts a text file of whitespace separated hexadecimal
// byte pairs into a binary file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jacoelho/hexbin"
	"github.com/jacoelho/hexbin/internal/config"
	"github.com/jacoelho/hexbin/internal/logging"
	"github.com/jacoelho/hexbin/internal/metrics"
)

const (
	version     = "0.1.0"
	exitSuccess = 0
	exitFailure = 1
)

var errArgCount = errors.New("invalid number of command line arguments")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		return fail(stderr, err)
	}

	fs := flag.NewFlagSet("hexbin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	bufferSize := fs.Int("buffer", cfg.Pipeline.BufferSize, "ring capacity in bytes, one reserved slot included")
	chunkSize := fs.Int("chunk", cfg.Pipeline.ChunkSize, "bulk read and write size, 0 for half the ring")
	logLevel := fs.String("log-level", cfg.Logging.Level, "log level: debug, info, warn or error")
	logDev := fs.Bool("log-dev", cfg.Logging.Development, "human readable logs")
	metricsFile := fs.String("metrics-file", cfg.Metrics.File, "write Prometheus metrics to this file after the run")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(stdout, fs)
			return exitSuccess
		}
		return fail(stderr, err)
	}
	if fs.NArg() != 2 {
		return fail(stderr, fmt.Errorf("%w: got %d, want <filein> <fileout>", errArgCount, fs.NArg()))
	}

	logger, err := logging.New(logging.Config{Level: *logLevel, Development: *logDev})
	if err != nil {
		return fail(stderr, fmt.Errorf("logger: %w", err))
	}
	defer func() { _ = logger.Sync() }()

	opts := []hexbin.Option{hexbin.WithLogger(logger)}
	var m *metrics.Metrics
	if *metricsFile != "" {
		m = metrics.New()
		opts = append(opts, hexbin.WithRecorder(m))
	}

	p, err := hexbin.New(hexbin.Config{BufferSize: *bufferSize, ChunkSize: *chunkSize}, opts...)
	if err != nil {
		return fail(stderr, err)
	}

	_, runErr := p.ConvertFile(ctx, fs.Arg(0), fs.Arg(1))

	if m != nil {
		if err := m.WriteFile(*metricsFile); err != nil {
			logger.Warn("failed to write metrics", zap.String("path", *metricsFile), zap.Error(err))
		}
	}
	if runErr != nil {
		return fail(stderr, runErr)
	}
	return exitSuccess
}

func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return exitFailure
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Text To Binary v%s\n\n", version)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "\thexbin [flags] <filein> <fileout>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "\tfilein: text file with hexadecimal numbers separated by whitespace or newlines")
	fmt.Fprintln(w, "\tfileout: output binary")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
}
