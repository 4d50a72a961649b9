package hexbin

import (
	"io"
	"sync"
)

var (
	_ io.ReaderFrom = (*Ring)(nil)
	_ io.WriterTo   = (*Ring)(nil)
)

const minRingCapacity = 2

// RingStats is a snapshot of the traffic through a ring.
type RingStats struct {
	Produced      int64
	Consumed      int64
	ProducerWaits int64
	ConsumerWaits int64
}

// Ring is a fixed capacity single-producer, single-consumer byte ring.
//
// One slot is reserved to tell a full ring from an empty one, so a ring of
// capacity C holds at most C-1 bytes. The producer index names the next slot
// to write and the consumer index names the last slot read: the ring starts
// with producer 0 and consumer C-1, which is the empty state.
type Ring struct {
	err error

	canProduce sync.Cond
	canConsume sync.Cond

	data     []byte
	producer int
	consumer int
	mu       sync.Mutex

	stats    RingStats
	finished bool
}

// NewRing creates a ring with the given capacity, reserved slot included.
// Capacities below 2 are raised to 2.
func NewRing(capacity int) *Ring {
	if capacity < minRingCapacity {
		capacity = minRingCapacity
	}
	r := &Ring{
		data:     make([]byte, capacity),
		consumer: capacity - 1,
	}
	r.canProduce.L = &r.mu
	r.canConsume.L = &r.mu
	return r
}

// Cap returns the number of bytes the ring can hold.
func (r *Ring) Cap() int {
	return len(r.data) - 1
}

// Len returns the number of unread bytes.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

// Stats returns a snapshot of the ring counters.
func (r *Ring) Stats() RingStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Produce copies chunk into the ring as a whole, blocking until enough free
// space exists. It fails with ErrChunkTooLarge when chunk can never fit,
// with ErrClosedRing after Finish, and with the abort error after Abort.
func (r *Ring) Produce(chunk []byte) error {
	if len(chunk) > r.Cap() {
		return ErrChunkTooLarge
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.waitForWritableLocked(len(chunk)); err != nil {
		return err
	}
	if len(chunk) == 0 {
		return nil
	}

	r.writeLocked(chunk)
	r.canConsume.Signal()
	return nil
}

// Consume copies up to len(dst) unread bytes into dst, blocking until at
// least one is available. It returns io.EOF once the producer finished and
// the ring is drained.
func (r *Ring) Consume(dst []byte) (int, error) {
	return r.consume(dst, 1)
}

// ConsumeChunk is like Consume but blocks until len(dst) bytes are
// available, capped at the ring capacity, or the producer finished.
func (r *Ring) ConsumeChunk(dst []byte) (int, error) {
	return r.consume(dst, min(len(dst), r.Cap()))
}

// Finish marks the producer side as done. Consumers drain what is left and
// then observe io.EOF.
func (r *Ring) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
	r.canConsume.Broadcast()
	r.canProduce.Broadcast()
}

// Abort terminates both sides of the ring. Buffered data is discarded and
// every pending or future call returns err. The first error is kept.
func (r *Ring) Abort(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		if err == nil {
			err = ErrClosedRing
		}
		r.err = err
	}
	r.canConsume.Broadcast()
	r.canProduce.Broadcast()
}

// ReadFrom implements io.ReaderFrom by producing chunks of half the ring
// capacity until src returns io.EOF. It does not call Finish.
func (r *Ring) ReadFrom(src io.Reader) (int64, error) {
	return r.fill(src, r.defaultChunk())
}

// WriteTo implements io.WriterTo by consuming chunks of half the ring
// capacity until the ring is finished and drained.
func (r *Ring) WriteTo(dst io.Writer) (int64, error) {
	return r.drain(dst, r.defaultChunk())
}

func (r *Ring) defaultChunk() int {
	return max(1, r.Cap()/2)
}

func (r *Ring) fill(src io.Reader, chunk int) (int64, error) {
	buf := make([]byte, chunk)
	var total int64
	for {
		n, rErr := src.Read(buf)
		if n > 0 {
			if err := r.Produce(buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if rErr != nil {
			if rErr != io.EOF {
				return total, rErr
			}
			return total, nil
		}
	}
}

func (r *Ring) drain(dst io.Writer, chunk int) (int64, error) {
	buf := make([]byte, chunk)
	var total int64
	for {
		n, cErr := r.ConsumeChunk(buf)
		if cErr != nil {
			if cErr != io.EOF {
				return total, cErr
			}
			return total, nil
		}

		wn, wErr := dst.Write(buf[:n])
		if wn < 0 || wn > n {
			wn = 0
			if wErr == nil {
				wErr = io.ErrShortWrite
			}
		}
		total += int64(wn)
		if wErr != nil {
			return total, wErr
		}
		if wn != n {
			return total, io.ErrShortWrite
		}
	}
}

func (r *Ring) consume(dst []byte, want int) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.waitForReadableLocked(want); err != nil {
		return 0, err
	}

	n := r.readLocked(dst)
	r.canProduce.Signal()
	return n, nil
}

// distance is the forward circular distance from a to b.
func (r *Ring) distance(a, b int) int {
	return (b - a + len(r.data)) % len(r.data)
}

// lenLocked counts the slots strictly between consumer and producer. When
// producer catches up with consumer the ring is full.
func (r *Ring) lenLocked() int {
	size := len(r.data)
	return (r.distance(r.consumer, r.producer) + size - 1) % size
}

func (r *Ring) freeLocked() int {
	return r.Cap() - r.lenLocked()
}

func (r *Ring) writeLocked(src []byte) {
	size := len(r.data)
	first := min(len(src), size-r.producer)
	copy(r.data[r.producer:], src[:first])
	copy(r.data, src[first:])

	r.producer = (r.producer + len(src)) % size
	r.stats.Produced += int64(len(src))
}

func (r *Ring) readLocked(dst []byte) int {
	size := len(r.data)
	n := min(r.lenLocked(), len(dst))
	start := (r.consumer + 1) % size

	first := min(n, size-start)
	copy(dst[:first], r.data[start:start+first])
	copy(dst[first:n], r.data[:n-first])

	r.consumer = (r.consumer + n) % size
	r.stats.Consumed += int64(n)
	return n
}

func (r *Ring) waitForWritableLocked(n int) error {
	for {
		if r.err != nil {
			return r.err
		}
		if r.finished {
			return ErrClosedRing
		}
		if r.freeLocked() >= n {
			return nil
		}
		r.stats.ProducerWaits++
		r.canProduce.Wait()
	}
}

func (r *Ring) waitForReadableLocked(want int) error {
	for {
		if r.err != nil {
			return r.err
		}
		available := r.lenLocked()
		if available >= want || (r.finished && available > 0) {
			return nil
		}
		if r.finished {
			return io.EOF
		}
		r.stats.ConsumerWaits++
		r.canConsume.Wait()
	}
}
