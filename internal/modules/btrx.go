package modules

import "github.com/blockbox/controller/internal/moduleif"

// Bluetooth-receiver register addresses.
const (
	BTRXStatus       byte = 0x01 // 1B: connected/paired/streaming bits
	BTRXVolume       byte = 0x02 // 1B 0-100
	BTRXDeviceName   byte = 0x10 // 32B fixed-bound ASCII, null-padded
	BTRXSampleRate   byte = 0x30 // 4B uint32 LE, Hz
	BTRXCodec        byte = 0x34 // 1B enum: SBC/AAC/aptX

	BTRXControl byte = 0x35 // 1B: INT_EN

	BTRXModuleID byte = 0xFE // 2B constant
)

const (
	BTRXStatusConnected byte = 1 << 0
	BTRXStatusPaired    byte = 1 << 1
	BTRXStatusStreaming byte = 1 << 2
)

const BTRXControlIntEn byte = 1 << 0

// BTRXExpectedModuleID is the constant MODULE_ID must read back as.
const BTRXExpectedModuleID uint32 = 0x4254 // "BT"

// BTRXInitTimeoutTicks matches spec §5's "≈4s" Bluetooth pairing/handshake
// figure at a 10ms main-loop period.
const BTRXInitTimeoutTicks = 400

// BTRXDeviceNameWidth is the fixed width of the device-name register,
// matching the "variable-length for string-bearing UART registers" note in
// spec §3 (fixed-bound here, not actually variable).
const BTRXDeviceNameWidth = 32

// BTRXWidths returns the compile-time width table for the Bluetooth
// receiver's register set.
func BTRXWidths() moduleif.WidthTable {
	var w moduleif.WidthTable
	w[BTRXStatus] = 1
	w[BTRXVolume] = 1
	w[BTRXDeviceName] = BTRXDeviceNameWidth
	w[BTRXSampleRate] = 4
	w[BTRXCodec] = 1
	w[BTRXControl] = 1
	w[BTRXModuleID] = 2
	return w
}

// BTRXReportable lists the registers read at init and re-synchronized on
// reset.
func BTRXReportable() []byte {
	return []byte{BTRXStatus, BTRXVolume, BTRXDeviceName, BTRXSampleRate, BTRXCodec, BTRXControl, BTRXModuleID}
}

// BTRXWatchSpecs configures change-notification diffing.
func BTRXWatchSpecs() map[byte]moduleif.WatchSpec {
	return map[byte]moduleif.WatchSpec{
		BTRXStatus:     {Kind: moduleif.DiffStateWord, Mask: 0xFF},
		BTRXDeviceName: {Kind: moduleif.DiffString},
		BTRXSampleRate: {Kind: moduleif.DiffRaw},
	}
}

// NewBTRX builds the Module handle for the Bluetooth receiver node.
func NewBTRX() *moduleif.Module {
	handshake := moduleif.InitHandshake{
		ModuleIDAddr:      BTRXModuleID,
		ExpectedModuleID:  BTRXExpectedModuleID,
		EnableNotifyAddr:  BTRXControl,
		EnableNotifyValue: uint32(BTRXControlIntEn),
		TimeoutTicks:      BTRXInitTimeoutTicks,
	}
	return moduleif.NewModule("bt-receiver", BTRXWidths(), BTRXReportable(), BTRXWatchSpecs(), handshake)
}
