package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRingBufferMirrorInvariantAfterWrites(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 16).Draw(t, "n")
		b := NewRingBuffer(n)

		writes := rapid.IntRange(0, 40).Draw(t, "writes")
		for i := 0; i < writes; i++ {
			sample := []float32{float32(i)}
			if b.Write(sample) == 1 && b.Available() == b.Capacity() {
				b.Advance(1) // drain one to keep exercising wraparound
			}
		}

		for i := 0; i < n-1; i++ {
			require.Equal(t, b.data[i], b.data[i+n], "mirror slot %d", i)
		}
	})
}

func TestRingBufferWriteStopsWhenFull(t *testing.T) {
	b := NewRingBuffer(4)
	samples := []float32{1, 2, 3, 4, 5, 6}

	written := b.Write(samples)
	require.Equal(t, 4, written)
	require.Equal(t, 4, b.Available())
	require.Equal(t, 0, b.Free())
}

func TestRingBufferPeekAdvanceRoundTrip(t *testing.T) {
	b := NewRingBuffer(8)
	b.Write([]float32{1, 2, 3, 4})

	got := b.Peek(3)
	require.Equal(t, []float32{1, 2, 3}, got)

	b.Advance(3)
	require.Equal(t, 1, b.Available())
	require.Equal(t, []float32{4}, b.Peek(1))
}

func TestRingBufferFillLevel(t *testing.T) {
	b := NewRingBuffer(10)
	require.Equal(t, 0.0, b.FillLevel())

	b.Write([]float32{1, 2, 3, 4, 5})
	require.InDelta(t, 0.5, b.FillLevel(), 0.0001)
}
