package audio

import "runtime"

// Buffer owns a sequence of 16-bit signed PCM samples captured at SampleRate
// with Channels always 1 (mono). It is created empty, grown via
// PushSamples, consumed once by the transcriber, and must have Release
// called when the caller is done with it so the backing storage is
// overwritten with zeros before it is reclaimed — no method on this type
// ever hands out a mutable view that could outlive a Release/clear.
type Buffer struct {
	samples    []int16
	SampleRate int
	Channels   int
	released   bool
}

// NewBuffer creates an empty buffer for the given sample rate. Channels is
// always 1; mono is the only format this pipeline ever produces or stores.
func NewBuffer(sampleRate int) *Buffer {
	b := &Buffer{SampleRate: sampleRate, Channels: 1}
	runtime.SetFinalizer(b, (*Buffer).finalize)
	return b
}

// PushSamples appends mono PCM samples to the buffer.
func (b *Buffer) PushSamples(s []int16) {
	b.samples = append(b.samples, s...)
}

// Len returns the number of samples currently held.
func (b *Buffer) Len() int { return len(b.samples) }

// Samples returns a read-only copy of the buffer's contents. A copy is
// returned (not the internal slice) so a caller can never retain a
// reference that would observe post-Release zeroing, or mutate storage
// behind the buffer's back.
func (b *Buffer) Samples() []int16 {
	out := make([]int16, len(b.samples))
	copy(out, b.samples)
	return out
}

// Release zeros the backing storage and drops the reference, satisfying the
// "no PCM traces remain in memory" invariant. Safe to call more than once.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	for i := range b.samples {
		b.samples[i] = 0
	}
	b.samples = nil
	b.released = true
	runtime.SetFinalizer(b, nil)
}

// finalize is the GC backstop: if a caller forgets to call Release before
// the buffer becomes unreachable, the finalizer zeros the storage before it
// is returned to the allocator. This is a defensive fallback, not the
// primary mechanism — callers are expected to Release explicitly at scope
// exit (the controller does so immediately after transcription).
func (b *Buffer) finalize() {
	b.Release()
}
