// Package modules defines the concrete register sets for the four node
// types this controller talks to (Power Amplifier, Battery Monitor,
// Bluetooth Receiver, Digital Audio Processor), built on top of
// internal/moduleif's generic register-abstraction layer (spec §6).
package modules

import "github.com/blockbox/controller/internal/moduleif"

// Power-amp register addresses (spec §6 "Power-amp register set").
const (
	PAStatus   byte = 0x01 // 1B bitfield
	PAControl  byte = 0x02 // 1B: RESET=0xA<<4, INT_EN, AMP_MAN_SD
	PAIntMask  byte = 0x03 // 1B: enables which PAIntFlags bits assert the interrupt line
	PAIntFlags byte = 0x04 // 1B bitfield, read-clear: which interrupt condition(s) fired

	PAPVDDTarget   byte = 0x10 // float LE
	PAPVDDRequest  byte = 0x11 // float LE
	PAPVDDMeasured byte = 0x12 // float LE

	// Monitor arrays: {V_rms,I_rms,P_avg,P_app} x {fast,slow} x {A,B,C,D}.
	// Laid out as 32 contiguous 4-byte float registers starting here.
	PAMonitorsBase byte = 0x20

	// Threshold arrays: 3 timescales x 3 measurement types x 5 channels x
	// 2 levels, laid out as contiguous 4-byte float registers.
	PAThresholdsBase byte = 0x60

	PASafetyStatus byte = 0xE0 // 1B bitfield
	PASerrSource   byte = 0xE1 // 1B bitfield
	PASwarnSource  byte = 0xE2 // 1B bitfield

	PAModuleID byte = 0xFE // 2B constant
)

// PAControlReset is the RESET field's fixed nibble value (spec: "RESET =
// 0xA<<4").
const PAControlReset byte = 0xA << 4

const (
	PAControlIntEn byte = 1 << 0
	PAControlManSD byte = 1 << 1
)

// PowerAmpStatus decodes the STATUS register's bitfield, including the
// clip/over-temperature-warning and I2C-transaction-error bits alongside
// the fault/safety bits the threshold engine already watches (grounded on
// power_amp_interface.h's PowerAmpStatus union).
type PowerAmpStatus struct {
	AmpFault      bool
	ClipOrOTW     bool
	AmpShutdown   bool
	PVDDValid     bool
	PVDDReducing  bool
	SafetyWarning bool
	ClipDetected  bool
	OTWDetected   bool
	I2CError      bool
}

const (
	paStatusAmpFault      byte = 1 << 0
	paStatusClipOrOTW     byte = 1 << 1
	paStatusAmpShutdown   byte = 1 << 2
	paStatusPVDDValid     byte = 1 << 3
	paStatusPVDDReducing  byte = 1 << 4
	paStatusSafetyWarning byte = 1 << 5
	paStatusClipDetected  byte = 1 << 6
	paStatusOTWDetected   byte = 1 << 7
)

// DecodePowerAmpStatus unpacks the STATUS register. The I2C-transaction-error
// bit isn't part of the slave's own status word (it's set by the controller
// when a transfer to this module fails); callers combine it in themselves.
func DecodePowerAmpStatus(raw byte, i2cError bool) PowerAmpStatus {
	return PowerAmpStatus{
		AmpFault:      raw&paStatusAmpFault != 0,
		ClipOrOTW:     raw&paStatusClipOrOTW != 0,
		AmpShutdown:   raw&paStatusAmpShutdown != 0,
		PVDDValid:     raw&paStatusPVDDValid != 0,
		PVDDReducing:  raw&paStatusPVDDReducing != 0,
		SafetyWarning: raw&paStatusSafetyWarning != 0,
		ClipDetected:  raw&paStatusClipDetected != 0,
		OTWDetected:   raw&paStatusOTWDetected != 0,
		I2CError:      i2cError,
	}
}

const (
	// PAIntFlags bits (spec §4.A "driven low while any unmasked interrupt
	// bit is set"; grounded on power_amp_interface.cpp's OnI2CInterrupt).
	PAIntResetFlag         byte = 1 << 0
	PAIntSafetyErr         byte = 1 << 1
	PAIntSafetyWarn        byte = 1 << 2
	PAIntPVDDErr           byte = 1 << 3
	PAIntPVDDReductionDone byte = 1 << 4
	PAIntPVDDOffsetLimit   byte = 1 << 5
)

// PowerAmpInterruptReadBack reports which registers the controller must
// re-read in response to a given PAIntFlags value, mirroring
// power_amp_interface.cpp's OnI2CInterrupt: every non-reset interrupt
// implies a status re-read, and each specific condition implies its own
// extra registers.
func PowerAmpInterruptReadBack(flags byte) []byte {
	if flags&PAIntResetFlag != 0 {
		return nil // reset is handled by moduleif.Module.NotifyResetDetected, not a register re-read
	}

	regs := []byte{PAStatus}
	if flags&PAIntSafetyErr != 0 {
		regs = append(regs, PASafetyStatus, PASerrSource)
	}
	if flags&PAIntSafetyWarn != 0 {
		regs = append(regs, PASwarnSource)
	}
	if flags&(PAIntPVDDErr|PAIntPVDDReductionDone|PAIntPVDDOffsetLimit) != 0 {
		regs = append(regs, PAPVDDTarget, PAPVDDRequest, PAPVDDMeasured)
	}
	return regs
}

// PAExpectedModuleID is the constant MODULE_ID must read back as.
const PAExpectedModuleID uint32 = 0x5041 // "PA"

// PAInitTimeoutTicks matches spec §5's "≈500ms for reset acks" baseline at
// a 10ms main-loop period.
const PAInitTimeoutTicks = 50

// paMonitorCount is the number of 4-byte monitor registers (4 quantities x
// 2 timescales x 4 channels).
const paMonitorCount = 4 * 2 * 4

// paThresholdCount is the number of 4-byte threshold registers (3
// timescales x 3 measurement types x 5 channels x 2 levels).
const paThresholdCount = 3 * 3 * 5 * 2

// PowerAmpWidths returns the compile-time width table for the power-amp
// register set.
func PowerAmpWidths() moduleif.WidthTable {
	var w moduleif.WidthTable
	w[PAStatus] = 1
	w[PAControl] = 1
	w[PAIntMask] = 1
	w[PAIntFlags] = 1
	w[PAPVDDTarget] = 4
	w[PAPVDDRequest] = 4
	w[PAPVDDMeasured] = 4
	for i := 0; i < paMonitorCount; i++ {
		w[int(PAMonitorsBase)+i] = 4
	}
	for i := 0; i < paThresholdCount; i++ {
		w[int(PAThresholdsBase)+i] = 4
	}
	w[PASafetyStatus] = 1
	w[PASerrSource] = 1
	w[PASwarnSource] = 1
	w[PAModuleID] = 2
	return w
}

// PowerAmpReportable lists the registers read during module init and
// watched for periodic re-synchronization.
func PowerAmpReportable() []byte {
	addrs := []byte{PAStatus, PAControl, PAIntMask, PAPVDDTarget, PAPVDDRequest, PAPVDDMeasured, PASafetyStatus, PASerrSource, PASwarnSource, PAModuleID}
	for i := 0; i < paMonitorCount; i++ {
		addrs = append(addrs, byte(int(PAMonitorsBase)+i))
	}
	return addrs
}

// PowerAmpWatchSpecs configures change-notification diffing for the
// power-amp's status and safety words (spec §4.B: state-word diffing
// ignores don't-care bits; here the whole byte is significant).
func PowerAmpWatchSpecs() map[byte]moduleif.WatchSpec {
	return map[byte]moduleif.WatchSpec{
		PAStatus:       {Kind: moduleif.DiffStateWord, Mask: 0xFF},
		PASafetyStatus: {Kind: moduleif.DiffStateWord, Mask: 0xFF},
		PASerrSource:   {Kind: moduleif.DiffRaw},
		PASwarnSource:  {Kind: moduleif.DiffRaw},
		PAPVDDMeasured: {Kind: moduleif.DiffFloat32},
	}
}

// NewPowerAmp builds the Module handle for a power-amp node.
func NewPowerAmp() *moduleif.Module {
	handshake := moduleif.InitHandshake{
		ModuleIDAddr:      PAModuleID,
		ExpectedModuleID:  PAExpectedModuleID,
		EnableNotifyAddr:  PAIntMask,
		EnableNotifyValue: uint32(PAIntSafetyErr | PAIntSafetyWarn | PAIntPVDDErr | PAIntPVDDReductionDone | PAIntPVDDOffsetLimit),
		TimeoutTicks:      PAInitTimeoutTicks,
	}
	return moduleif.NewModule("power-amp", PowerAmpWidths(), PowerAmpReportable(), PowerAmpWatchSpecs(), handshake)
}
