package modules

import "github.com/blockbox/controller/internal/moduleif"

// BMS register addresses. Unlike the power-amp and DAP, the battery
// monitor's real register space is the gauge IC's subcommand/data-memory
// interface (component F talks to it directly); these addresses are the
// module-interface shadow the controller keeps for status/alert reporting.
const (
	BMSStatus        byte = 0x01 // 1B: mode + sealed + fets_enabled + dsg/chg state
	BMSSafetyAlerts  byte = 0x02 // 2B
	BMSSafetyFaults  byte = 0x04 // 2B
	BMSStateOfCharge byte = 0x06 // 1B percent
	BMSSoCPrecision  byte = 0x07 // 1B enum: Invalid/VoltageOnly/EstimatedRef/MeasuredRef
	BMSPackVoltage   byte = 0x08 // 4B float LE
	BMSPackCurrent   byte = 0x0C // 4B float LE
	BMSTemperature   byte = 0x10 // 4B float LE, celsius
	BMSHealth        byte = 0x14 // 4B float LE, the sole persisted value

	BMSControl byte = 0x18 // 1B: FET_FORCE_DSG, FET_FORCE_CHG, FETS_ENABLE, INT_EN

	BMSModuleID byte = 0xFE // 2B constant
)

const (
	BMSStatusModeMask    byte = 0b0000_0011
	BMSStatusSealed      byte = 1 << 2
	BMSStatusFetsEnabled byte = 1 << 3
)

// BMSControl bits (grounded on bms.c's BMS_SetFETForceOff/BMS_SetFETControl
// read-modify-verify pattern).
const (
	BMSControlForceOffDsg byte = 1 << 2
	BMSControlForceOffChg byte = 1 << 3
	BMSControlFetsEnable  byte = 1 << 4
	BMSControlIntEn       byte = 1 << 7
)

// BMSSoCConfidence mirrors the wire-level enum from spec §6.
type BMSSoCConfidence int

const (
	BMSSoCInvalid BMSSoCConfidence = iota
	BMSSoCVoltageOnly
	BMSSoCEstimatedRef
	BMSSoCMeasuredRef
)

// BMSExpectedModuleID is the constant MODULE_ID must read back as.
const BMSExpectedModuleID uint32 = 0x424D // "BM"

// BMSWidths returns the compile-time width table for the BMS register set.
func BMSWidths() moduleif.WidthTable {
	var w moduleif.WidthTable
	w[BMSStatus] = 1
	w[BMSSafetyAlerts] = 2
	w[BMSSafetyFaults] = 2
	w[BMSStateOfCharge] = 1
	w[BMSSoCPrecision] = 1
	w[BMSPackVoltage] = 4
	w[BMSPackCurrent] = 4
	w[BMSTemperature] = 4
	w[BMSHealth] = 4
	w[BMSControl] = 1
	w[BMSModuleID] = 2
	return w
}

// BMSReportable lists the registers read at init and re-synchronized on
// reset.
func BMSReportable() []byte {
	return []byte{
		BMSStatus, BMSSafetyAlerts, BMSSafetyFaults, BMSStateOfCharge,
		BMSSoCPrecision, BMSPackVoltage, BMSPackCurrent, BMSTemperature,
		BMSHealth, BMSControl, BMSModuleID,
	}
}

// BMSWatchSpecs configures change-notification diffing: safety
// alerts/faults only care about presence, not the exact fault bits (spec
// §4.B: "equality of semantically-relevant bit groups").
func BMSWatchSpecs() map[byte]moduleif.WatchSpec {
	return map[byte]moduleif.WatchSpec{
		BMSStatus:        {Kind: moduleif.DiffStateWord, Mask: 0xFF},
		BMSSafetyAlerts:  {Kind: moduleif.DiffPresence},
		BMSSafetyFaults:  {Kind: moduleif.DiffPresence},
		BMSStateOfCharge: {Kind: moduleif.DiffRaw},
		BMSPackVoltage:   {Kind: moduleif.DiffFloat32},
		BMSTemperature:   {Kind: moduleif.DiffFloat32},
	}
}

const (
	// BMSIntResetFlag and friends occupy bits 4-6 of BMSStatus, which
	// doubles as the interrupt-flags byte, since the gauge-shadow register
	// set has no dedicated INT_FLAGS address of its own. No original-source controller-side BMS interrupt handler
	// exists to ground this against directly; it is modeled on
	// power_amp_interface.cpp's OnI2CInterrupt read-back pattern.
	BMSIntResetFlag   byte = 1 << 4
	BMSIntSafetyAlert byte = 1 << 5
	BMSIntSafetyFault byte = 1 << 6
)

// BMSInterruptReadBack reports which registers to re-read for a given
// BMSStatus interrupt-flag byte, generalizing power_amp_interface.cpp's
// OnI2CInterrupt to the battery monitor: a reset implies no register
// re-read (the init handshake owns that); otherwise BMSStatus is always
// re-read, a safety alert/fault adds the corresponding word, and the
// state-of-charge/voltage/current/temperature block is always re-read so
// the dashboard stays current.
func BMSInterruptReadBack(flags byte) []byte {
	if flags&BMSIntResetFlag != 0 {
		return nil
	}

	regs := []byte{BMSStatus}
	if flags&BMSIntSafetyAlert != 0 {
		regs = append(regs, BMSSafetyAlerts)
	}
	if flags&BMSIntSafetyFault != 0 {
		regs = append(regs, BMSSafetyFaults)
	}
	regs = append(regs, BMSStateOfCharge, BMSPackVoltage, BMSPackCurrent, BMSTemperature)
	return regs
}

// BMSInitTimeoutTicks matches spec §5's "≈500ms for reset acks" baseline at
// a 10ms main-loop period.
const BMSInitTimeoutTicks = 50

// NewBMS builds the Module handle for the battery monitor node.
func NewBMS() *moduleif.Module {
	handshake := moduleif.InitHandshake{
		ModuleIDAddr:      BMSModuleID,
		ExpectedModuleID:  BMSExpectedModuleID,
		EnableNotifyAddr:  BMSControl,
		EnableNotifyValue: uint32(BMSControlIntEn),
		TimeoutTicks:      BMSInitTimeoutTicks,
	}
	return moduleif.NewModule("battery-monitor", BMSWidths(), BMSReportable(), BMSWatchSpecs(), handshake)
}
