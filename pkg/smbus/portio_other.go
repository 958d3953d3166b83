//go:build !linux
// +build !linux

package smbus

import "errors"

// DefaultPortDevice is unused on this platform.
const DefaultPortDevice = ""

// ErrPortAccessUnsupported is returned where user space cannot reach I/O ports.
var ErrPortAccessUnsupported = errors.New("direct port access is not supported on this platform")

// PortBus is unavailable on this platform.
type PortBus struct{}

// OpenPortBus always fails on this platform.
func OpenPortBus(string) (*PortBus, error) {
	return nil, ErrPortAccessUnsupported
}

// ReadPort always fails.
func (p *PortBus) ReadPort(uint16) (byte, error) { return 0, ErrPortAccessUnsupported }

// WritePort always fails.
func (p *PortBus) WritePort(uint16, byte) error { return ErrPortAccessUnsupported }

// Close is a no-op.
func (p *PortBus) Close() error { return nil }
