package modules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPowerAmpWidthsCoverKnownRegisters(t *testing.T) {
	w := PowerAmpWidths()
	require.Equal(t, 1, w[PAStatus])
	require.Equal(t, 4, w[PAPVDDTarget])
	require.Equal(t, 2, w[PAModuleID])
	require.Equal(t, 0, w[0x00], "address 0 is always invalid")
}

func TestPowerAmpReportableIncludesModuleID(t *testing.T) {
	reportable := PowerAmpReportable()
	require.Contains(t, reportable, PAModuleID)
	require.Contains(t, reportable, PAPVDDMeasured)
}

func TestNewPowerAmpStartsUninitialized(t *testing.T) {
	m := NewPowerAmp()
	require.False(t, m.Ready())
	require.Equal(t, 4, m.Registers.Width(PAPVDDTarget))
}
