package hexbin

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBufferSize is the capacity of each ring, reserved slot included.
const DefaultBufferSize = 512

// Config sizes the rings and the bulk chunks moved by the reader and writer.
type Config struct {
	// BufferSize is the capacity of each ring. Zero means DefaultBufferSize.
	BufferSize int
	// ChunkSize bounds each bulk read and write. Zero means half of the
	// usable ring capacity.
	ChunkSize int
}

// Result describes a finished run.
type Result struct {
	RunID        uuid.UUID
	BytesRead    int64
	Digits       int64
	BytesWritten int64
	Duration     time.Duration
	Input        RingStats
	Output       RingStats
}

// Recorder observes the outcome of every run.
type Recorder interface {
	ObserveRun(res Result, err error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage lifecycle and run summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder registers a Recorder notified after each run.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// Pipeline converts hex text to binary. A Pipeline holds no per-run state
// and may run several conversions concurrently.
type Pipeline struct {
	logger   *zap.Logger
	recorder Recorder
	cfg      Config
}

// New validates cfg and returns a Pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.BufferSize < minRingCapacity {
		return nil, fmt.Errorf("%w: buffer size %d, need at least %d", ErrInvalidConfig, cfg.BufferSize, minRingCapacity)
	}

	usable := cfg.BufferSize - 1
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = max(1, usable/2)
	}
	if cfg.ChunkSize < 0 || cfg.ChunkSize > usable {
		return nil, fmt.Errorf("%w: chunk size %d, want 1..%d", ErrInvalidConfig, cfg.ChunkSize, usable)
	}

	p := &Pipeline{
		logger: zap.NewNop(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run decodes src into dst. The reader, converter and writer run
// concurrently and Run returns once all three have stopped. The first stage
// failure aborts both rings so the other stages unwind, and that failure is
// the error returned. Cancelling ctx aborts the run the same way.
func (p *Pipeline) Run(ctx context.Context, src io.Reader, dst io.Writer) (Result, error) {
	res := Result{RunID: uuid.New()}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	logger := p.logger.With(zap.Stringer("run_id", res.RunID))
	start := time.Now()

	in := NewRing(p.cfg.BufferSize)
	out := NewRing(p.cfg.BufferSize)

	var (
		once  sync.Once
		cause error
	)
	fail := func(err error) {
		once.Do(func() {
			cause = err
			in.Abort(err)
			out.Abort(err)
		})
	}
	stop := context.AfterFunc(ctx, func() { fail(context.Cause(ctx)) })
	defer stop()

	var g errgroup.Group
	spawn := func(stage Stage, fn func() error) {
		g.Go(func() error {
			logger.Debug("stage started", zap.String("stage", string(stage)))
			if err := fn(); err != nil {
				fail(err)
				logger.Debug("stage stopped", zap.String("stage", string(stage)), zap.Error(err))
				return err
			}
			logger.Debug("stage finished", zap.String("stage", string(stage)))
			return nil
		})
	}

	spawn(StageReader, func() (err error) {
		res.BytesRead, err = readStage(src, in, p.cfg.ChunkSize)
		return err
	})
	spawn(StageConverter, func() (err error) {
		res.Digits, err = convertStage(in, out, logger)
		return err
	})
	spawn(StageWriter, func() (err error) {
		res.BytesWritten, err = writeStage(dst, out, p.cfg.ChunkSize)
		return err
	})

	var err error
	if g.Wait() != nil {
		err = cause
	}

	res.Duration = time.Since(start)
	res.Input = in.Stats()
	res.Output = out.Stats()

	if err != nil {
		logger.Info("conversion failed", zap.Error(err), zap.Int64("bytes_written", res.BytesWritten))
	} else {
		logger.Info("conversion finished",
			zap.Int64("bytes_read", res.BytesRead),
			zap.Int64("digits", res.Digits),
			zap.Int64("bytes_written", res.BytesWritten),
			zap.Duration("duration", res.Duration),
		)
	}
	if p.recorder != nil {
		p.recorder.ObserveRun(res, err)
	}
	return res, err
}

// ConvertFile decodes the file at inPath into outPath, creating or
// truncating the output. A partially written output is left in place when
// the run fails.
func (p *Pipeline) ConvertFile(ctx context.Context, inPath, outPath string) (Result, error) {
	if err := validateEndpoints(inPath, outPath); err != nil {
		return Result{}, err
	}

	src, err := os.Open(inPath)
	if err != nil {
		return Result{}, &StageError{Stage: StageReader, Op: "open", Err: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{}, &StageError{Stage: StageWriter, Op: "open", Err: err}
	}

	res, err := p.Run(ctx, src, dst)
	if cErr := dst.Close(); cErr != nil && err == nil {
		err = &StageError{Stage: StageWriter, Op: "close", Err: cErr}
	}
	return res, err
}

func validateEndpoints(inPath, outPath string) error {
	if inPath == "" {
		return fmt.Errorf("%w: empty input path", ErrInvalidEndpoint)
	}
	if outPath == "" {
		return fmt.Errorf("%w: empty output path", ErrInvalidEndpoint)
	}

	inAbs, inErr := filepath.Abs(inPath)
	outAbs, outErr := filepath.Abs(outPath)
	if inErr == nil && outErr == nil && inAbs == outAbs {
		return fmt.Errorf("%w: %s", ErrSameEndpoint, inPath)
	}

	inInfo, inErr := os.Stat(inPath)
	outInfo, outErr := os.Stat(outPath)
	if inErr == nil && outErr == nil && os.SameFile(inInfo, outInfo) {
		return fmt.Errorf("%w: %s and %s", ErrSameEndpoint, inPath, outPath)
	}
	return nil
}
