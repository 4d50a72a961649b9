package hexbin_test

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jacoelho/hexbin"
)

func TestRingBasic(t *testing.T) {
	r := hexbin.NewRing(16)

	mustProduce(t, r, []byte("hello"))
	if r.Len() != 5 {
		t.Fatalf("expected len 5, got %d", r.Len())
	}

	mustConsume(t, r, []byte("hello"))
	if r.Len() != 0 {
		t.Fatalf("expected empty ring, got len %d", r.Len())
	}
}

func TestRingCapacityReservesOneSlot(t *testing.T) {
	tests := []struct {
		capacity int
		usable   int
	}{
		{capacity: 512, usable: 511},
		{capacity: 2, usable: 1},
		{capacity: 1, usable: 1},
		{capacity: 0, usable: 1},
		{capacity: -3, usable: 1},
	}

	for _, tt := range tests {
		if got := hexbin.NewRing(tt.capacity).Cap(); got != tt.usable {
			t.Fatalf("NewRing(%d).Cap() = %d, want %d", tt.capacity, got, tt.usable)
		}
	}
}

func TestRingFullVersusEmptyAcrossWrap(t *testing.T) {
	r := hexbin.NewRing(5)

	// move both indices around the ring several times, checking the full
	// and the empty state at every offset
	for offset := range 10 {
		if r.Len() != 0 {
			t.Fatalf("offset %d: expected empty ring, got len %d", offset, r.Len())
		}

		data := []byte{byte(offset), 1, 2, 3}
		mustProduce(t, r, data)
		if r.Len() != r.Cap() {
			t.Fatalf("offset %d: expected full ring, got len %d", offset, r.Len())
		}

		head := make([]byte, 1)
		if _, err := r.Consume(head); err != nil {
			t.Fatalf("offset %d: consume failed: %v", offset, err)
		}
		rest := make([]byte, 3)
		mustReadFull(t, ringReader{r}, rest)
		if !bytes.Equal(append(head, rest...), data) {
			t.Fatalf("offset %d: expected %v, got %v", offset, data, append(head, rest...))
		}
	}
}

func TestRingWrapAround(t *testing.T) {
	r := hexbin.NewRing(5)

	mustProduce(t, r, []byte("abcd"))
	mustConsume(t, r, []byte("ab"))
	mustProduce(t, r, []byte("xy"))

	remaining := make([]byte, 4)
	mustReadFull(t, ringReader{r}, remaining)
	if string(remaining) != "cdxy" {
		t.Fatalf("expected %q, got %q", "cdxy", remaining)
	}
}

func TestRingProduceBlocksWhileFull(t *testing.T) {
	r := hexbin.NewRing(4)
	mustProduce(t, r, []byte("abc"))

	var (
		wg      sync.WaitGroup
		prodErr error
	)
	done := make(chan struct{})
	wg.Go(func() {
		defer close(done)
		prodErr = r.Produce([]byte("de"))
	})

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("produce returned while the ring was full")
	default:
	}

	mustConsume(t, r, []byte("ab"))
	wg.Wait()
	if prodErr != nil {
		t.Fatalf("Produce failed: %v", prodErr)
	}

	mustConsume(t, r, []byte("cde"))
	if stats := r.Stats(); stats.ProducerWaits == 0 {
		t.Fatalf("expected producer waits to be recorded, got %+v", stats)
	}
}

func TestRingConsumeBlocksUntilData(t *testing.T) {
	r := hexbin.NewRing(8)

	var (
		wg      sync.WaitGroup
		got     []byte
		consErr error
	)
	wg.Go(func() {
		buf := make([]byte, 8)
		n, err := r.Consume(buf)
		got, consErr = buf[:n], err
	})

	time.Sleep(10 * time.Millisecond)
	mustProduce(t, r, []byte("x"))

	wg.Wait()
	if consErr != nil {
		t.Fatalf("Consume failed: %v", consErr)
	}
	if string(got) != "x" {
		t.Fatalf("expected %q, got %q", "x", got)
	}
}

func TestRingConsumeChunkWaitsForFullChunk(t *testing.T) {
	r := hexbin.NewRing(16)

	var (
		wg  sync.WaitGroup
		got []byte
	)
	wg.Go(func() {
		buf := make([]byte, 4)
		n, err := r.ConsumeChunk(buf)
		if err != nil {
			t.Errorf("ConsumeChunk failed: %v", err)
		}
		got = buf[:n]
	})

	mustProduce(t, r, []byte("ab"))
	time.Sleep(10 * time.Millisecond)
	mustProduce(t, r, []byte("cd"))

	wg.Wait()
	if string(got) != "abcd" {
		t.Fatalf("expected %q, got %q", "abcd", got)
	}
}

func TestRingConsumeChunkReturnsPartialAfterFinish(t *testing.T) {
	r := hexbin.NewRing(16)
	mustProduce(t, r, []byte("ab"))
	r.Finish()

	buf := make([]byte, 8)
	n, err := r.ConsumeChunk(buf)
	if err != nil {
		t.Fatalf("ConsumeChunk failed: %v", err)
	}
	if string(buf[:n]) != "ab" {
		t.Fatalf("expected %q, got %q", "ab", buf[:n])
	}
	expectEOF(t, r)
}

func TestRingFinishWakesConsumer(t *testing.T) {
	r := hexbin.NewRing(8)

	var (
		wg      sync.WaitGroup
		consErr error
	)
	wg.Go(func() {
		_, consErr = r.Consume(make([]byte, 1))
	})

	time.Sleep(10 * time.Millisecond)
	r.Finish()

	wg.Wait()
	expectError(t, consErr, io.EOF)
}

func TestRingProduceAfterFinish(t *testing.T) {
	r := hexbin.NewRing(8)
	r.Finish()
	r.Finish()

	expectError(t, r.Produce([]byte("x")), hexbin.ErrClosedRing)
}

func TestRingChunkTooLarge(t *testing.T) {
	r := hexbin.NewRing(4)

	expectError(t, r.Produce([]byte("abcd")), hexbin.ErrChunkTooLarge)
	mustProduce(t, r, []byte("abc"))
}

func TestRingZeroLength(t *testing.T) {
	r := hexbin.NewRing(4)

	mustProduce(t, r, nil)
	n, err := r.Consume(nil)
	if n != 0 || err != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestRingAbort(t *testing.T) {
	t.Run("DiscardsBufferedData", func(t *testing.T) {
		r := hexbin.NewRing(8)
		mustProduce(t, r, []byte("data"))

		abortErr := errors.New("stage failed")
		r.Abort(abortErr)

		_, err := r.Consume(make([]byte, 4))
		expectError(t, err, abortErr)
		expectError(t, r.Produce([]byte("x")), abortErr)
	})

	t.Run("WakesBlockedProducer", func(t *testing.T) {
		r := hexbin.NewRing(2)
		mustProduce(t, r, []byte("x"))

		var (
			wg      sync.WaitGroup
			prodErr error
		)
		wg.Go(func() {
			prodErr = r.Produce([]byte("y"))
		})

		time.Sleep(10 * time.Millisecond)
		abortErr := errors.New("consumer gone")
		r.Abort(abortErr)

		wg.Wait()
		expectError(t, prodErr, abortErr)
	})

	t.Run("WakesBlockedConsumer", func(t *testing.T) {
		r := hexbin.NewRing(2)

		var (
			wg      sync.WaitGroup
			consErr error
		)
		wg.Go(func() {
			_, consErr = r.ConsumeChunk(make([]byte, 1))
		})

		time.Sleep(10 * time.Millisecond)
		r.Abort(nil)

		wg.Wait()
		expectError(t, consErr, hexbin.ErrClosedRing)
	})

	t.Run("FirstErrorWins", func(t *testing.T) {
		r := hexbin.NewRing(4)

		firstErr := errors.New("first")
		r.Abort(firstErr)
		r.Abort(errors.New("second"))

		_, err := r.Consume(make([]byte, 1))
		expectError(t, err, firstErr)
	})
}

func TestRingReadFromWriteTo(t *testing.T) {
	r := hexbin.NewRing(64)

	testData := make([]byte, 100*1024)
	for i := range testData {
		testData[i] = byte(i % 251)
	}

	var (
		wg       sync.WaitGroup
		writeErr error
		readErr  error
		written  int64
		received bytes.Buffer
	)

	wg.Go(func() {
		defer r.Finish()
		_, writeErr = r.ReadFrom(bytes.NewReader(testData))
	})
	wg.Go(func() {
		written, readErr = r.WriteTo(&received)
	})

	wg.Wait()
	if writeErr != nil {
		t.Fatalf("ReadFrom failed: %v", writeErr)
	}
	if readErr != nil {
		t.Fatalf("WriteTo failed: %v", readErr)
	}
	if written != int64(len(testData)) {
		t.Fatalf("expected to copy %d bytes, copied %d", len(testData), written)
	}
	if !bytes.Equal(received.Bytes(), testData) {
		t.Fatalf("data integrity check failed")
	}

	stats := r.Stats()
	if stats.Produced != int64(len(testData)) || stats.Consumed != int64(len(testData)) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRingReadFromWithReadError(t *testing.T) {
	r := hexbin.NewRing(16)

	failing := &failingReaderTest{data: []byte("test data"), failAfter: 4}
	_, err := r.ReadFrom(failing)
	if err == nil || err.Error() != "read failed" {
		t.Fatalf("expected 'read failed', got %v", err)
	}
}

func TestRingWriteToWithWriteError(t *testing.T) {
	r := hexbin.NewRing(16)
	mustProduce(t, r, []byte("test data"))
	r.Finish()

	_, err := r.WriteTo(&failingWriterTest{failAfter: 4})
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected io.ErrShortWrite, got %v", err)
	}
}

// ringReader adapts a ring to io.Reader for io.ReadFull.
type ringReader struct {
	r *hexbin.Ring
}

func (rr ringReader) Read(p []byte) (int, error) {
	return rr.r.Consume(p)
}

type failingWriterTest struct {
	written   int
	failAfter int
}

func (fw *failingWriterTest) Write(p []byte) (int, error) {
	if fw.written >= fw.failAfter {
		return 0, errors.New("write failed")
	}
	n := min(len(p), fw.failAfter-fw.written)
	fw.written += n
	return n, nil
}

type failingReaderTest struct {
	data      []byte
	pos       int
	failAfter int
}

func (fr *failingReaderTest) Read(p []byte) (int, error) {
	if fr.pos >= fr.failAfter {
		return 0, errors.New("read failed")
	}
	n := copy(p, fr.data[fr.pos:fr.failAfter])
	fr.pos += n
	return n, nil
}

func mustProduce(t *testing.T, r *hexbin.Ring, data []byte) {
	t.Helper()
	if err := r.Produce(data); err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
}

func mustConsume(t *testing.T, r *hexbin.Ring, expected []byte) {
	t.Helper()
	buf := make([]byte, len(expected))
	n, err := r.Consume(buf)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if n != len(expected) {
		t.Fatalf("expected to consume %d bytes, consumed %d", len(expected), n)
	}
	if !bytes.Equal(buf, expected) {
		t.Fatalf("expected %q, got %q", expected, buf)
	}
}

func mustReadFull(t *testing.T, r io.Reader, buf []byte) int {
	t.Helper()
	n, err := io.ReadFull(r, buf)
	if err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	return n
}

func expectError(t *testing.T, err, expected error) {
	t.Helper()
	if err != expected {
		t.Fatalf("expected %v, got %v", expected, err)
	}
}

func expectEOF(t *testing.T, r *hexbin.Ring) {
	t.Helper()
	_, err := r.Consume(make([]byte, 1))
	if err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}
