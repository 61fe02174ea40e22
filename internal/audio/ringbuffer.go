package audio

// RingBuffer is the semi-circular resampler buffer from spec §3: length
// 2N-1, with entries [N, 2N-1) mirroring [0, N-1) so a contiguous read of up
// to N-1 samples can always be taken starting at any reader offset in
// [0,N) without wraparound logic. The invariant buf[i] == buf[i+N] for
// i in [0, N-1) holds after every completed write.
type RingBuffer struct {
	data      []float32
	n         int
	readPos   int
	writePos  int
	available int // samples currently held, in [0, n]
}

// NewRingBuffer allocates a buffer capable of holding n samples (n must be
// positive).
func NewRingBuffer(n int) *RingBuffer {
	if n <= 0 {
		panic("audio: ring buffer capacity must be positive")
	}
	return &RingBuffer{data: make([]float32, 2*n-1), n: n}
}

// Capacity returns N, the buffer's sample capacity.
func (b *RingBuffer) Capacity() int { return b.n }

// Available returns the number of samples currently held.
func (b *RingBuffer) Available() int { return b.available }

// Free returns the number of additional samples that can be written before
// the buffer is full.
func (b *RingBuffer) Free() int { return b.n - b.available }

// Write appends up to len(samples) samples, stopping early if the buffer
// fills, and returns the count actually written. Each write maintains the
// mirror invariant by writing through to both the primary and mirrored
// slot whenever the primary slot falls in [0, N-1).
func (b *RingBuffer) Write(samples []float32) int {
	written := 0
	for written < len(samples) && b.available < b.n {
		b.data[b.writePos] = samples[written]
		if b.writePos < b.n-1 {
			b.data[b.writePos+b.n] = samples[written]
		}
		b.writePos++
		if b.writePos >= b.n {
			b.writePos = 0
		}
		b.available++
		written++
	}
	return written
}

// Peek returns a contiguous read-only view of the next count samples
// without consuming them (count must be <= Available() and < N, so the
// mirrored region can satisfy it without wraparound).
func (b *RingBuffer) Peek(count int) []float32 {
	if count > b.available || count >= b.n {
		panic("audio: ring buffer peek out of range")
	}
	return b.data[b.readPos : b.readPos+count]
}

// Advance consumes count samples previously returned by Peek.
func (b *RingBuffer) Advance(count int) {
	if count > b.available {
		panic("audio: ring buffer advance exceeds available samples")
	}
	b.readPos += count
	if b.readPos >= b.n {
		b.readPos -= b.n
	}
	b.available -= count
}

// FillLevel returns Available as a fraction of Capacity, used by ready
// gating and the adaptive SRC's buffer-fill-error term.
func (b *RingBuffer) FillLevel() float64 {
	return float64(b.available) / float64(b.n)
}
