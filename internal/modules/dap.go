package modules

import "github.com/blockbox/controller/internal/moduleif"

// Digital-audio-processor register addresses.
const (
	DAPStatus      byte = 0x01 // 1B: active source, ready flag
	DAPActiveSrc   byte = 0x02 // 1B enum, mirrors audio.Source
	DAPInputRate   byte = 0x04 // 4B uint32 LE, Hz
	DAPBufferFill  byte = 0x08 // 4B float LE, fraction [0,1]
	DAPControl     byte = 0x0C // 1B: INT_EN
	DAPMixerGains  byte = 0x10 // array base: SP_MAX_CHANNELS*SRC_MAX_CHANNELS floats
	DAPVolume      byte = 0x50 // 4B float LE, master output gain

	DAPModuleID byte = 0xFE // 2B constant
)

const (
	DAPStatusReady byte = 1 << 0
)

const DAPControlIntEn byte = 1 << 0

// DAPExpectedModuleID is the constant MODULE_ID must read back as.
const DAPExpectedModuleID uint32 = 0x4441 // "DA"

// DAPInitTimeoutTicks matches spec §5's "≈500ms for reset acks" baseline at
// a 10ms main-loop period.
const DAPInitTimeoutTicks = 50

// dapMixerGainCount mirrors the mixer's SP_MAX_CHANNELS x SRC_MAX_CHANNELS
// matrix shape (spec §4.D): 8 output channels x 8 input channels.
const dapMixerGainCount = 8 * 8

// DAPWidths returns the compile-time width table for the DAP register set.
func DAPWidths() moduleif.WidthTable {
	var w moduleif.WidthTable
	w[DAPStatus] = 1
	w[DAPActiveSrc] = 1
	w[DAPInputRate] = 4
	w[DAPBufferFill] = 4
	w[DAPControl] = 1
	for i := 0; i < dapMixerGainCount; i++ {
		w[int(DAPMixerGains)+i] = 4
	}
	w[DAPVolume] = 4
	w[DAPModuleID] = 2
	return w
}

// DAPReportable lists the registers read at init and re-synchronized on
// reset.
func DAPReportable() []byte {
	return []byte{DAPStatus, DAPActiveSrc, DAPInputRate, DAPBufferFill, DAPControl, DAPVolume, DAPModuleID}
}

// DAPWatchSpecs configures change-notification diffing.
func DAPWatchSpecs() map[byte]moduleif.WatchSpec {
	return map[byte]moduleif.WatchSpec{
		DAPStatus:     {Kind: moduleif.DiffStateWord, Mask: 0xFF},
		DAPActiveSrc:  {Kind: moduleif.DiffRaw},
		DAPInputRate:  {Kind: moduleif.DiffRaw},
		DAPBufferFill: {Kind: moduleif.DiffFloat32},
	}
}

// NewDAP builds the Module handle for the digital audio processor node.
func NewDAP() *moduleif.Module {
	handshake := moduleif.InitHandshake{
		ModuleIDAddr:      DAPModuleID,
		ExpectedModuleID:  DAPExpectedModuleID,
		EnableNotifyAddr:  DAPControl,
		EnableNotifyValue: uint32(DAPControlIntEn),
		TimeoutTicks:      DAPInitTimeoutTicks,
	}
	return moduleif.NewModule("dap", DAPWidths(), DAPReportable(), DAPWatchSpecs(), handshake)
}
