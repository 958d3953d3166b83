// Package smbus drives an Intel ICH-style SMBus host controller through its
// I/O-mapped registers. It knows nothing about SPD semantics: it performs one
// byte read per call and reports how the exchange ended.
package smbus

import "time"

// Host controller register offsets from the I/O base
const (
	RegStatus  = 0x00 // SMBHSTSTS
	RegControl = 0x02 // SMBHSTCNT
	RegCommand = 0x03 // SMBHSTCMD
	RegAddress = 0x04 // SMBHSTADD
	RegData0   = 0x05 // SMBHSTDAT0
	RegData1   = 0x06 // SMBHSTDAT1
)

// Status register bits (write-1-to-clear for Intr and Error)
const (
	StatusBusy  = 1 << 0
	StatusIntr  = 1 << 1
	StatusError = 1 << 2
)

const (
	// ReadBit is OR'd into the shifted slave address for read transactions.
	ReadBit = 0x01

	// OpBlockRead is written to the control register to start a transaction.
	OpBlockRead = 0x0C
)

// Defaults for the busy-wait polling loops.
const (
	DefaultPollInterval = 10 * time.Microsecond
	DefaultRetryBudget  = 1000
)

const (
	// OpByteData starts a byte-data protocol transaction (START | BYTE_DATA).
	OpByteData = 0x48

	// SetPageAddress is SPA0; SPA1 is the next address. DDR4 EEPROMs switch
	// between the lower and upper 256 bytes when either is addressed.
	SetPageAddress = 0x36
)
