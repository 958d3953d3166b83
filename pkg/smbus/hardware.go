package smbus

// HardwareBus is raw 8-bit port access. Production code talks to real I/O
// ports; tests and dry runs use DryBus.
type HardwareBus interface {
	// ReadPort reads one byte from an I/O port.
	ReadPort(port uint16) (byte, error)

	// WritePort writes one byte to an I/O port.
	WritePort(port uint16, value byte) error

	// Close releases the underlying port handle.
	Close() error
}
