//go:build linux
// +build linux

package smbus

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DefaultPortDevice is the character device exposing the I/O port space.
const DefaultPortDevice = "/dev/port"

// PortBus implements HardwareBus on top of /dev/port. Requires CAP_SYS_RAWIO.
type PortBus struct {
	path string
	fd   int
}

// OpenPortBus opens the port device at path.
func OpenPortBus(path string) (*PortBus, error) {
	if path == "" {
		path = DefaultPortDevice
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &PortBus{path: path, fd: fd}, nil
}

// ReadPort reads one byte from port.
func (p *PortBus) ReadPort(port uint16) (byte, error) {
	var buf [1]byte
	n, err := unix.Pread(p.fd, buf[:], int64(port))
	if err != nil {
		return 0, fmt.Errorf("read port 0x%04X: %w", port, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("read port 0x%04X: short read", port)
	}
	return buf[0], nil
}

// WritePort writes one byte to port.
func (p *PortBus) WritePort(port uint16, value byte) error {
	buf := [1]byte{value}
	n, err := unix.Pwrite(p.fd, buf[:], int64(port))
	if err != nil {
		return fmt.Errorf("write port 0x%04X: %w", port, err)
	}
	if n != 1 {
		return fmt.Errorf("write port 0x%04X: short write", port)
	}
	return nil
}

// Close closes the port device.
func (p *PortBus) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}
