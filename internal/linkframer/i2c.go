package linkframer

import (
	"github.com/blockbox/controller/internal/crc"
)

// I2CDirection distinguishes the two transfer shapes an addressed I2C-style
// transaction can take: a register write (address + data) or a register
// read (address write, then repeated-start read).
type I2CDirection int

const (
	I2CWrite I2CDirection = iota
	I2CRead
)

// I2CPreimage builds the CRC-8 pre-image for an I2C-style register access:
// `addr_write · reg_addr [· addr_read]` followed by the data bytes, per
// spec §4.A. For a write, data is the bytes being written. For a read, data
// is the bytes being returned by the slave (the CRC covers the read data,
// not the write-phase address byte twice).
func I2CPreimage(dir I2CDirection, i2cAddr7 byte, regAddr byte, data []byte) []byte {
	addrWrite := (i2cAddr7 << 1) | 0
	pre := make([]byte, 0, 3+len(data))
	pre = append(pre, addrWrite, regAddr)
	if dir == I2CRead {
		addrRead := (i2cAddr7 << 1) | 1
		pre = append(pre, addrRead)
	}
	pre = append(pre, data...)
	return pre
}

// I2CChecksum computes the CRC-8 that trails an I2C-style transfer.
func I2CChecksum(dir I2CDirection, i2cAddr7, regAddr byte, data []byte) uint8 {
	return crc.CRC8(I2CPreimage(dir, i2cAddr7, regAddr, data))
}

// I2CVerify reports whether the given trailing CRC-8 byte matches the
// transfer's computed checksum.
func I2CVerify(dir I2CDirection, i2cAddr7, regAddr byte, data []byte, trailingCRC uint8) bool {
	return I2CChecksum(dir, i2cAddr7, regAddr, data) == trailingCRC
}

// I2CSequentialPreimage computes the CRC-8 pre-image for the second and
// later registers of a sequential read/write chain (spec §4.A: "Sequential
// reads chain by incrementing the register address and restarting the CRC
// with the data bytes only").
func I2CSequentialPreimage(data []byte) []byte {
	return append([]byte(nil), data...)
}
