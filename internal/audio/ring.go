package audio

import "sync/atomic"

// ring is a fixed-capacity single-producer/single-consumer circular buffer
// of int16 samples. The producer (audio callback) calls push; the consumer
// calls drain only after the stream has stopped. head/tail are maintained
// with atomics so the producer never blocks on a lock — overflow silently
// drops the newest samples rather than overwriting unread history, since
// the consumer here only drains once, at stop, not continuously.
//
// Not built on a mutex-guarded ring: the audio callback must never block,
// and a lock-free SPSC ring is the only shape that guarantees that under a
// real-time native callback.
type ring struct {
	buf  []int16
	cap  uint64
	head atomic.Uint64 // next write index (producer-owned)
	tail atomic.Uint64 // next read index (consumer-owned)
}

func newRing(capacity int) *ring {
	return &ring{
		buf: make([]int16, capacity),
		cap: uint64(capacity),
	}
}

// push appends samples, dropping the tail of the slice if it would overflow
// the remaining capacity. Returns the number of samples actually written.
func (r *ring) push(samples []int16) int {
	head := r.head.Load()
	tail := r.tail.Load()
	used := head - tail
	free := r.cap - used
	n := uint64(len(samples))
	if n > free {
		n = free
	}
	for i := uint64(0); i < n; i++ {
		r.buf[(head+i)%r.cap] = samples[i]
	}
	r.head.Store(head + n)
	return int(n)
}

// drain copies out every unread sample and resets the ring to empty. Only
// safe to call after the producer side has stopped pushing (i.e. after the
// native stream is stopped), matching the capture engine's start/stop
// contract.
func (r *ring) drain() []int16 {
	head := r.head.Load()
	tail := r.tail.Load()
	n := head - tail
	if n == 0 {
		return nil
	}
	out := make([]int16, n)
	for i := uint64(0); i < n; i++ {
		out[i] = r.buf[(tail+i)%r.cap]
	}
	r.tail.Store(head)
	return out
}

// len reports the number of unread samples currently buffered.
func (r *ring) len() int {
	return int(r.head.Load() - r.tail.Load())
}
