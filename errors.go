package hexbin

import (
	"errors"
	"fmt"
)

var (
	// ErrClosedRing is returned when producing into a finished ring or
	// when a ring is aborted without a cause.
	ErrClosedRing = errors.New("hexbin: produce on finished ring")

	// ErrChunkTooLarge is returned when a chunk exceeds the ring capacity.
	ErrChunkTooLarge = errors.New("hexbin: chunk larger than ring capacity")

	// ErrInvalidDigit matches every DecodeError.
	ErrInvalidDigit = errors.New("hexbin: invalid hex digit")

	// ErrInvalidEndpoint is returned for an empty input or output path.
	ErrInvalidEndpoint = errors.New("hexbin: invalid endpoint")

	// ErrSameEndpoint is returned when input and output name the same file.
	ErrSameEndpoint = errors.New("hexbin: input and output are the same file")

	// ErrInvalidConfig is returned by New for unusable buffer or chunk sizes.
	ErrInvalidConfig = errors.New("hexbin: invalid config")
)

// DecodeError reports a character that is neither a hex digit nor a
// separator.
type DecodeError struct {
	Char   byte
	Offset int64
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unknown character %q at offset %d", e.Char, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return ErrInvalidDigit
}

// Stage names one of the three pipeline stages.
type Stage string

const (
	StageReader    Stage = "reader"
	StageConverter Stage = "converter"
	StageWriter    Stage = "writer"
)

// StageError records the stage and the operation that failed.
type StageError struct {
	Stage Stage
	Op    string
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Op + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
