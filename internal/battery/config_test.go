package battery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSizeMap() SizeMap {
	var sizes SizeMap
	// First 5 offsets: a 2-byte register at 0, a 1-byte register at 2, a
	// 2-byte register at 3 (continuation at 4), remainder 1-byte each.
	sizes[0] = 2
	sizes[1] = 0
	sizes[2] = 1
	sizes[3] = 2
	sizes[4] = 0
	for i := 5; i < ConfigBlockSize; i++ {
		sizes[i] = 1
	}
	return sizes
}

func TestReconcileFindsNoDiffsOnIdenticalBlocks(t *testing.T) {
	var block [ConfigBlockSize]byte
	diffs, err := Reconcile(block, block, testSizeMap())
	require.NoError(t, err)
	require.Empty(t, diffs)
}

func TestReconcileFindsDiffsAtRegisterGranularity(t *testing.T) {
	var live, expected [ConfigBlockSize]byte
	expected[0] = 0xAB // differs within the 2-byte register at offset 0
	expected[2] = 0x01 // differs within the 1-byte register at offset 2

	diffs, err := Reconcile(live, expected, testSizeMap())
	require.NoError(t, err)
	require.Len(t, diffs, 2)
	require.Equal(t, RegisterDiff{Offset: 0, Width: 2}, diffs[0])
	require.Equal(t, RegisterDiff{Offset: 2, Width: 1}, diffs[1])
}

func TestWriteDiffsAppliesExpectedBytes(t *testing.T) {
	var expected [ConfigBlockSize]byte
	expected[0], expected[1] = 0x11, 0x22

	var written [][]byte
	var offsets []int
	err := WriteDiffs(expected, []RegisterDiff{{Offset: 0, Width: 2}}, func(offset int, data []byte) error {
		offsets = append(offsets, offset)
		cp := make([]byte, len(data))
		copy(cp, data)
		written = append(written, cp)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, []int{0}, offsets)
	require.Equal(t, [][]byte{{0x11, 0x22}}, written)
}
