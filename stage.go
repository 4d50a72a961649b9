package hexbin

import (
	"io"

	"go.uber.org/zap"
)

// readStage streams src into ring in chunks and finishes the ring on end of
// input.
func readStage(src io.Reader, ring *Ring, chunk int) (int64, error) {
	n, err := ring.fill(src, chunk)
	if err != nil {
		return n, &StageError{Stage: StageReader, Op: "read", Err: err}
	}
	ring.Finish()
	return n, nil
}

// convertStage drains in one character at a time and produces one byte into
// out per completed pair. A trailing lone digit is dropped.
func convertStage(in, out *Ring, logger *zap.Logger) (int64, error) {
	var (
		dec  pairDecoder
		c    [1]byte
		next [1]byte
	)

	for {
		if _, err := in.Consume(c[:]); err != nil {
			if err != io.EOF {
				return dec.digits, &StageError{Stage: StageConverter, Op: "read", Err: err}
			}
			break
		}

		b, ok, err := dec.feed(c[0])
		if err != nil {
			return dec.digits, &StageError{Stage: StageConverter, Op: "decode", Err: err}
		}
		if !ok {
			continue
		}

		next[0] = b
		if err := out.Produce(next[:]); err != nil {
			return dec.digits, &StageError{Stage: StageConverter, Op: "write", Err: err}
		}
	}

	if dec.pending() {
		logger.Debug("dropping unpaired trailing digit", zap.Int64("digits", dec.digits))
	}
	out.Finish()
	return dec.digits, nil
}

// writeStage drains ring into dst in chunks until the ring is finished and
// empty.
func writeStage(dst io.Writer, ring *Ring, chunk int) (int64, error) {
	n, err := ring.drain(dst, chunk)
	if err != nil {
		return n, &StageError{Stage: StageWriter, Op: "write", Err: err}
	}
	return n, nil
}
