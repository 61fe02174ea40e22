package moduleif

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testWidths() WidthTable {
	var w WidthTable
	w[0x10] = 1
	w[0x11] = 2
	w[0x12] = 4
	return w
}

func TestRegisterMapGetSetRoundTrip(t *testing.T) {
	rm := NewRegisterMap(testWidths())

	require.NoError(t, rm.Set(0x11, []byte{0xAA, 0xBB}))
	got, err := rm.Get(0x11)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestRegisterMapRejectsPartialWrite(t *testing.T) {
	rm := NewRegisterMap(testWidths())

	err := rm.Set(0x11, []byte{0xAA})
	require.ErrorIs(t, err, ErrFormat)
}

func TestRegisterMapRejectsUnknownAddress(t *testing.T) {
	rm := NewRegisterMap(testWidths())

	_, err := rm.Get(0x99)
	require.ErrorIs(t, err, ErrNotARegister)

	err = rm.Set(0x99, []byte{0x00})
	require.ErrorIs(t, err, ErrNotARegister)
}

func TestRegisterMapGetUint32LittleEndian(t *testing.T) {
	rm := NewRegisterMap(testWidths())
	require.NoError(t, rm.Set(0x12, []byte{0x01, 0x02, 0x03, 0x04}))

	v, width, err := rm.GetUint32(0x12)
	require.NoError(t, err)
	require.Equal(t, 4, width)
	require.Equal(t, uint32(0x04030201), v)
}

func TestRegisterMapFloat32RoundTrip(t *testing.T) {
	rm := NewRegisterMap(testWidths())
	require.NoError(t, rm.SetFloat32(0x12, 13.5))

	v, err := rm.GetFloat32(0x12)
	require.NoError(t, err)
	require.InDelta(t, 13.5, float64(v), 0.0001)
}

func TestRegisterMapAllIsASnapshotCopy(t *testing.T) {
	rm := NewRegisterMap(testWidths())
	require.NoError(t, rm.Set(0x10, []byte{0x01}))

	snap := rm.All()
	require.NoError(t, rm.Set(0x10, []byte{0x02}))

	require.Equal(t, []byte{0x01}, snap[0x10], "snapshot must not observe later mutation")
}
