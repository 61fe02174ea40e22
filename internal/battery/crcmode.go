package battery

import (
	"errors"
	"fmt"
)

// ErrCRCModeDetectionFailed is returned when neither CRC-off nor CRC-on
// reads of DEVICE_NUMBER match the expected constant.
var ErrCRCModeDetectionFailed = errors.New("battery: could not determine gauge CRC mode")

// DeviceNumberReader is the minimal I/O surface CRC-mode detection needs:
// read the DEVICE_NUMBER subcommand result with CRC checking on or off.
type DeviceNumberReader interface {
	ReadDeviceNumber(crcOn bool) (uint16, error)
}

// ExpectedDeviceNumber is the compile-time constant DEVICE_NUMBER must
// equal for detection to succeed.
const ExpectedDeviceNumber = 0x0425

// DetectCRCMode implements spec §4.F's detection algorithm: try reading
// DEVICE_NUMBER without CRC first; if it doesn't match, try with CRC on. A
// reset may silently flip the gauge's CRC mode, so any later transfer
// failure should retrigger detection (the caller's responsibility, not
// this function's).
func DetectCRCMode(r DeviceNumberReader) (crcOn bool, err error) {
	if v, err := r.ReadDeviceNumber(false); err == nil && v == ExpectedDeviceNumber {
		return false, nil
	}
	if v, err := r.ReadDeviceNumber(true); err == nil && v == ExpectedDeviceNumber {
		return true, nil
	}
	return false, fmt.Errorf("%w: device number never matched 0x%04X", ErrCRCModeDetectionFailed, ExpectedDeviceNumber)
}
